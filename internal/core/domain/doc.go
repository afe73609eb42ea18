// Package domain contains the core business entities for lexrag.
// Domain types have no dependencies on adapters or external libraries.
package domain
