// Package middleware provides StateStore decorators.
//
// Decorators compose with Chain:
//
//	metrics, _ := middleware.NewMetricsMiddleware(registry)
//	store = middleware.Chain(store, metrics, middleware.NewGraphMiddleware(g))
package middleware
