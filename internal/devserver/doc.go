// Package devserver serves a document root over plain HTTP for local
// development.
//
// Every response carries permissive CORS and no-cache headers, and paths
// ending in .wasm are served as application/wasm. The pieces compose as
// ordinary middleware around a static file handler:
//
//	h := devserver.WithHeaders(devserver.DevHeaders())(
//		devserver.ForceContentType(devserver.WASMContentType)(
//			devserver.FileHandler(root)))
//
// Server wires the same chain behind a chi router and owns the listener.
package devserver
