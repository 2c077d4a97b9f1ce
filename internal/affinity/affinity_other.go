//go:build !linux

package affinity

// Pin is a no-op on platforms without a cheap CPU-pinning syscall
// available through golang.org/x/sys; affinity_enable stays best-effort.
func Pin(cpu int) error {
	return nil
}
