//go:build !unix

package ledger

import "os"

// Non-unix platforms rely on the in-process mutex only.
func lockFile(*os.File) error       { return nil }
func lockFileShared(*os.File) error { return nil }
func unlockFile(*os.File) error     { return nil }
