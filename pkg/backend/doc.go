// Package backend defines how yogrt talks to a resource-manager backend.
//
// A backend is any implementation of Backend. Implementations register a Factory
// under a name; Registry.Open binds exactly one of them into a Handle. A Handle is
// either loaded (delegating to the backend) or unloaded (no backend could be bound).
// Once opened, a Handle never changes variant.
package backend
