// Dependency rule: dispio may import depth only.
package dispio
