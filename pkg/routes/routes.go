// Package routes declares HTTP routes as nested groups and registers them on
// a ServeMux.
package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler. MaxBody, when
// positive, caps the request body in bytes and overrides the group's limit.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	MaxBody int64
}

// Group organizes routes under a common prefix. MaxBody is inherited by
// routes and child groups that do not set their own.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
	MaxBody  int64
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		register(mux, "", 0, group)
	}
}

func register(mux *http.ServeMux, parent string, limit int64, group Group) {
	prefix := parent + group.Prefix
	if group.MaxBody > 0 {
		limit = group.MaxBody
	}

	for _, route := range group.Routes {
		n := limit
		if route.MaxBody > 0 {
			n = route.MaxBody
		}
		mux.Handle(route.Method+" "+prefix+route.Pattern, limitBody(route.Handler, n))
	}
	for _, child := range group.Children {
		register(mux, prefix, limit, child)
	}
}

// limitBody wraps h so reads past n bytes fail with *http.MaxBytesError.
func limitBody(h http.HandlerFunc, n int64) http.Handler {
	if n <= 0 {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		h(w, r)
	})
}
