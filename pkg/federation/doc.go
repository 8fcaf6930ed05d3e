// Package federation implements the ring protocol between independent
// sites: admission to hosted rings, member health checking, pulling joined
// ring mirrors from their hosts, and rating aggregation. Outbound calls go
// through Client; services take a storage.RingStore and never hold a ring
// lock across network I/O.
package federation
