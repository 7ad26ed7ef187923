package main

import (
	"log"
	"os"

	"comicrestore-backend/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	router := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	config.ExposeHeaders = []string{"X-Restore-Segments", "X-Restore-Format", "Content-Disposition"}
	config.AllowCredentials = true
	router.Use(cors.New(config))

	restoreHandler := handlers.NewRestoreHandler()

	// API Routes
	api := router.Group("/api/v1")
	{
		api.GET("/health", restoreHandler.HealthCheck)

		restore := api.Group("/restore")
		{
			restore.POST("/image", restoreHandler.RestoreImage)
			restore.GET("/segments", restoreHandler.SegmentCount)
		}

		album := api.Group("/album")
		{
			album.POST("/fetch", restoreHandler.FetchAlbum)
			album.POST("/chapters", restoreHandler.AlbumChapters)
			album.POST("/batch", restoreHandler.FetchSeries)
			album.POST("/pdf", restoreHandler.AlbumPDF)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	log.Printf("API endpoints:")
	log.Printf("  POST /api/v1/restore/image    - Restore a scrambled page image (returns restored image)")
	log.Printf("  GET  /api/v1/restore/segments - Resolve the band count for an identifier pair")
	log.Printf("  POST /api/v1/album/fetch      - Scrape, download and restore a whole album")
	log.Printf("  POST /api/v1/album/chapters   - List the chapters of a series")
	log.Printf("  POST /api/v1/album/batch      - Download a whole series chapter by chapter")
	log.Printf("  POST /api/v1/album/pdf        - Build a PDF from a directory of restored pages")
	log.Printf("  GET  /api/v1/health           - Health check")
	log.Printf("")
	log.Printf("Features:")
	log.Printf("  • MD5-keyed segment count resolution per page")
	log.Printf("  • Exact band reassembly for uneven band heights")
	log.Printf("  • Rate-limited album downloads with skip-existing")
	log.Printf("  • PDF binding of restored albums")

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
