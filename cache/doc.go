// Package cache provides the time-bounded response cache used by the API
// client.
//
// MemoryCache is capacity-bounded and evicts in strict insertion order
// (FIFO): when full, the entry inserted earliest among those still present is
// dropped, regardless of how recently it was read. Expiry is checked lazily
// on Get; there is no background sweep.
//
// Keys are caller-supplied opaque strings. Key and DefaultKeyer build
// namespaced keys so that two resource types never share a key by accident.
package cache
