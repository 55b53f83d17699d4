package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/pinmap/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generated tiles and answer boundary containment queries",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("tiles-dir", "", "Directory containing {z}/{x}/{y}.png tiles (defaults to --output-dir)")
	serveCmd.Flags().String("mbtiles", "", "Serve tiles from an MBTiles database instead of a directory")
	serveCmd.Flags().Int("cache-size", 1024, "Number of tiles kept in memory (0 disables the cache)")
	serveCmd.Flags().String("cache-control", "public, max-age=3600", "Cache-Control header for served tiles")
	serveCmd.Flags().Bool("cors", true, "Allow cross-origin requests")

	serveCmd.Flags().String("boundary", "", "Boundary file (GeoJSON or .shp) for /contains")
	serveCmd.Flags().String("rect", "", "Rectangular boundary for /contains: swLat,swLng,neLat,neLng")
	serveCmd.Flags().String("crs", "", "CRS of the boundary file")
	serveCmd.Flags().String("field", "JPT_KOD_JE", "Shapefile attribute compared against --code")
	serveCmd.Flags().StringSlice("code", nil, "Shapefile attribute values to select")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.tiles_dir", "tiles-dir")
	mustBind("serve.mbtiles", "mbtiles")
	mustBind("serve.cache_size", "cache-size")
	mustBind("serve.cache_control", "cache-control")
	mustBind("serve.cors", "cors")
	mustBind("serve.boundary", "boundary")
	mustBind("serve.rect", "rect")
	mustBind("serve.crs", "crs")
	mustBind("serve.field", "field")
	mustBind("serve.code", "code")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := viper.GetString("serve.addr")
	mbtilesPath := viper.GetString("serve.mbtiles")
	tilesDir := viper.GetString("serve.tiles_dir")
	if tilesDir == "" && mbtilesPath == "" {
		tilesDir = viper.GetString("output-dir")
	}

	region, err := loadRegion(regionConfig{
		Boundary: viper.GetString("serve.boundary"),
		Rect:     viper.GetString("serve.rect"),
		CRS:      viper.GetString("serve.crs"),
		Field:    viper.GetString("serve.field"),
		Codes:    viper.GetStringSlice("serve.code"),
	}, logger)
	if err != nil {
		return err
	}

	s, err := server.New(server.Config{
		TilesDir:     tilesDir,
		MBTilesPath:  mbtilesPath,
		CacheSize:    viper.GetInt("serve.cache_size"),
		CacheControl: viper.GetString("serve.cache_control"),
		Region:       region,
	}, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	handler := s.Handler()
	if viper.GetBool("serve.cors") {
		handler = withCORS(handler)
	}

	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down server", "error", err)
		}
	}()

	logger.Info("tile server listening",
		"addr", addr,
		"tiles_dir", tilesDir,
		"mbtiles", mbtilesPath,
		"boundary", region != nil,
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
