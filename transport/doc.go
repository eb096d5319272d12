// Package transport carries CosyncJWT requests to the REST backend.
//
// The root package depends only on the [Transport] interface, so tests and
// embedders can substitute any implementation. [HTTP] is the production
// implementation on top of net/http; cross-cutting behaviour (request IDs,
// request logging) is layered as [Middleware] around its RoundTripper.
//
// # Architecture boundaries
//
// A Transport moves bytes. It does not interpret status codes, decode
// response payloads, or retry. Every failure is returned once to the caller.
//
// # What this package must NOT do
//
//   - Retry, queue, or reorder requests.
//   - Log headers or bodies; both carry credentials.
//   - Import the root cosyncjwt package.
package transport
