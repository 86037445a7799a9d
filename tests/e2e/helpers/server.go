package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const blogPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>%s</title>
</head>
<body>
  %s
  <div id="root">
    <main>
      <h1>Latest posts</h1>
      <article><h2>Shipping Go services</h2><p>Notes from production.</p></article>
    </main>
  </div>
</body>
</html>`

const blogHeader = `<header><nav><a href="/">Home</a> <a href="/sign-in">Sign in</a> <a href="/sign-up">Sign up</a></nav></header>`

// SlowDelay is how long the /slow route stalls before responding.
const SlowDelay = 3 * time.Second

// NewBlogServer starts a fixture blog. Routes:
//
//	/              healthy page titled "My Tech Blog"
//	/empty-title   healthy page with an empty <title>
//	/no-root       page without div#root
//	/no-nav        page without <nav> or <header>
//	/slow          healthy page served after SlowDelay
//	/sign-up, /sign-in
//
// Each variant is also mounted as a base path so the suite can be pointed at
// e.g. srv.URL+"/no-root" and still resolve its sub-pages.
func NewBlogServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(gin.Recovery())

	page := func(title, header string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Header("Content-Type", "text/html; charset=utf-8")
			c.String(http.StatusOK, blogPage, title, header)
		}
	}
	auth := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Header("Content-Type", "text/html; charset=utf-8")
			c.String(http.StatusOK, blogPage, name+" | My Tech Blog", blogHeader)
		}
	}

	variants := map[string]gin.HandlerFunc{
		"/":            page("My Tech Blog", blogHeader),
		"/empty-title": page("", blogHeader),
		"/no-nav":      page("My Tech Blog", ""),
		"/no-root": func(c *gin.Context) {
			c.Header("Content-Type", "text/html; charset=utf-8")
			c.String(http.StatusOK, `<!DOCTYPE html><html><head><title>My Tech Blog</title></head><body>%s<p>Nothing mounted</p></body></html>`, blogHeader)
		},
		"/slow": func(c *gin.Context) {
			select {
			case <-time.After(SlowDelay):
			case <-c.Request.Context().Done():
				return
			}
			page("My Tech Blog", blogHeader)(c)
		},
	}
	for path, h := range variants {
		r.GET(path, h)
		if path != "/" {
			r.GET(path+"/sign-up", auth("Sign up"))
			r.GET(path+"/sign-in", auth("Sign in"))
		}
	}
	r.GET("/sign-up", auth("Sign up"))
	r.GET("/sign-in", auth("Sign in"))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}
