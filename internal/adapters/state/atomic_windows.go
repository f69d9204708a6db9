//go:build windows

package state

import "os"

// atomicWriteFile writes data to a temp file and renames it into place.
// Windows rename is not guaranteed atomic across volumes, but the temp
// file lives next to the target so this is as close as the platform gets.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
