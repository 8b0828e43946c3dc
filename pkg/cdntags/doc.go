// Package cdntags renders script and stylesheet tags that point at CDN URLs
// in selected deploy environments and at locally resolved asset paths
// everywhere else. A Tags value holds the shared Configuration; it is built
// once at startup, mutated through Configure, and read by the tag helpers
// on every render.
package cdntags
