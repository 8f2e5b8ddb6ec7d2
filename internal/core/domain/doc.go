// Package domain defines the error vocabulary shared by the Sabertooth core.
//
// Errors carry a stable code of the form ST-<AREA>-<NNNN> so callers can
// branch with errors.Is regardless of wrapped details or causes.
package domain
