/*
Package router implements sticky, consistent-hash request routing.

A Router maps opaque user identifiers to opaque worker identifiers using
a hash ring (pkg/hashring) with 150 virtual nodes per worker by default,
and caches the first decision made for each user so that repeated calls
return the same worker for as long as it stays registered — even across
ring membership changes that would otherwise reassign the user.

Adding a worker never disturbs existing cached assignments. Removing a
worker purges every cache entry that pointed to it, forcing those users
through a fresh ring lookup on their next Route call.
*/
package router
