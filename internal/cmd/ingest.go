package cmd

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/pinmap/internal/boundary"
	"github.com/MeKo-Tech/pinmap/internal/crs"
	"github.com/MeKo-Tech/pinmap/internal/shapefile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Convert administrative boundaries from a shapefile to GeoJSON",
	Long: `Read polygon records from a shapefile, select them by an attribute code,
reproject them to WGS84 and write the merged boundary as GeoJSON.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("shp", "", "Input shapefile (.shp with .dbf next to it)")
	ingestCmd.Flags().String("field", "JPT_KOD_JE", "Attribute compared against --code")
	ingestCmd.Flags().StringSlice("code", nil, "Attribute values to select (repeatable; default: all records)")
	ingestCmd.Flags().String("crs", "EPSG:2180", "CRS of the shapefile coordinates (EPSG:2180, EPSG:3857, EPSG:4326)")
	ingestCmd.Flags().StringP("output", "o", "boundary.geojson", "Output GeoJSON file")
	ingestCmd.Flags().Bool("list-fields", false, "Print the attribute fields of the shapefile and exit")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, ingestCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("ingest.shp", "shp")
	mustBind("ingest.field", "field")
	mustBind("ingest.code", "code")
	mustBind("ingest.crs", "crs")
	mustBind("ingest.output", "output")
	mustBind("ingest.list_fields", "list-fields")
}

// ingestConfig collects the settings of one ingest run.
type ingestConfig struct {
	Shapefile string
	Field     string
	Codes     []string
	CRS       string
	Output    string
}

func runIngest(cmd *cobra.Command, args []string) error {
	shpPath := viper.GetString("ingest.shp")
	if shpPath == "" {
		return fmt.Errorf("--shp is required")
	}

	if viper.GetBool("ingest.list_fields") {
		fields, err := shapefile.Fields(shpPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(fields, "\n"))
		return nil
	}

	res, err := ingestBoundary(ingestConfig{
		Shapefile: shpPath,
		Field:     viper.GetString("ingest.field"),
		Codes:     viper.GetStringSlice("ingest.code"),
		CRS:       viper.GetString("ingest.crs"),
		Output:    viper.GetString("ingest.output"),
	})
	if err != nil {
		return err
	}

	b := res.Bounds.LonLatBounds()
	fmt.Fprintf(cmd.OutOrStdout(), "%d polygons from %d records, bbox %.6f,%.6f,%.6f,%.6f\n",
		res.Polygons, res.Matched, b[1], b[0], b[3], b[2])
	return nil
}

// ingestBoundary reads the selected shapefile records and writes them to
// cfg.Output as GeoJSON.
func ingestBoundary(cfg ingestConfig) (*shapefile.Result, error) {
	t, ok := crs.ByName(cfg.CRS)
	if !ok {
		return nil, fmt.Errorf("unknown CRS %q", cfg.CRS)
	}

	res, err := shapefile.Read(cfg.Shapefile, shapefile.Options{
		Field:       filterField(cfg.Field, cfg.Codes),
		Codes:       cfg.Codes,
		Transformer: t,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read boundary: %w", err)
	}

	props := map[string]interface{}{
		"source":   cfg.Shapefile,
		"polygons": res.Polygons,
	}
	if len(cfg.Codes) > 0 {
		props["field"] = cfg.Field
		props["codes"] = cfg.Codes
	}
	if err := boundary.WriteGeoJSONFile(cfg.Output, res.Geometry, props); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("Boundary written", "path", cfg.Output, "polygons", res.Polygons, "bbox", res.Bounds.String())
	}
	return res, nil
}

// filterField drops the attribute filter when no codes are selected, so
// shapefiles without an attribute table can still be read in full.
func filterField(field string, codes []string) string {
	if len(codes) == 0 {
		return ""
	}
	return field
}
