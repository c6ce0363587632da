package router

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"

	"github.com/kamarjahan/pdf-img-edit/internal/api/handlers/process"
	"github.com/kamarjahan/pdf-img-edit/internal/middleware"
)

func Setup(h *process.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.POST("/process", h.Process) // upload files and run a tool

	prom := promhttp.Handler()
	r.GET("/metrics", func(c *ginext.Context) {
		prom.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
