// Package web serves the embedded login view. The login script is the popup
// orchestrator: it drives the authorization popup, its one-shot message
// listener, and the session handoff.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static
var staticFS embed.FS

// RegisterRoutes mounts the login page and its assets.
func RegisterRoutes(engine *gin.Engine) {
	assets, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The subtree is embedded at build time; failure here is a packaging bug.
		panic(err)
	}

	engine.GET("/", func(c *gin.Context) {
		c.FileFromFS("login.html", http.FS(assets))
	})
	engine.StaticFS("/static", http.FS(assets))
}
