package cmd

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var containsCmd = &cobra.Command{
	Use:   "contains",
	Short: "Check whether a pin position lies inside the map boundary",
	Long: `Check a latitude/longitude pair against a rectangular (--rect) or
polygonal (--boundary) map boundary. Prints "inside" or "outside".`,
	RunE: runContains,
}

func init() {
	rootCmd.AddCommand(containsCmd)

	containsCmd.Flags().String("boundary", "", "Boundary file (GeoJSON or .shp)")
	containsCmd.Flags().String("rect", "", "Rectangular boundary: swLat,swLng,neLat,neLng")
	containsCmd.Flags().String("crs", "", "CRS of the boundary file (default: WGS84 for GeoJSON, EPSG:2180 for shapefiles)")
	containsCmd.Flags().String("field", "JPT_KOD_JE", "Shapefile attribute compared against --code")
	containsCmd.Flags().StringSlice("code", nil, "Shapefile attribute values to select")
	containsCmd.Flags().Float64("lat", math.NaN(), "Pin latitude")
	containsCmd.Flags().Float64("lng", math.NaN(), "Pin longitude")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, containsCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("contains.boundary", "boundary")
	mustBind("contains.rect", "rect")
	mustBind("contains.crs", "crs")
	mustBind("contains.field", "field")
	mustBind("contains.code", "code")
	mustBind("contains.lat", "lat")
	mustBind("contains.lng", "lng")
}

func runContains(cmd *cobra.Command, args []string) error {
	lat := viper.GetFloat64("contains.lat")
	lng := viper.GetFloat64("contains.lng")
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("--lat and --lng are required")
	}

	region, err := loadRegion(regionConfig{
		Boundary: viper.GetString("contains.boundary"),
		Rect:     viper.GetString("contains.rect"),
		CRS:      viper.GetString("contains.crs"),
		Field:    viper.GetString("contains.field"),
		Codes:    viper.GetStringSlice("contains.code"),
	}, logger)
	if err != nil {
		return err
	}
	if region == nil {
		return fmt.Errorf("one of --boundary or --rect is required")
	}

	inside := region.Contains(lat, lng)
	logger.Debug("Containment check", "lat", lat, "lng", lng, "bounds", region.Bounds().String(), "inside", inside)

	if inside {
		fmt.Fprintln(cmd.OutOrStdout(), "inside")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "outside")
	}
	return nil
}
