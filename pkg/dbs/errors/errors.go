// Package errors holds the sentinel errors shared by the save codec and the
// services built on top of it. Match them with errors.Is.
package errors

import "errors"

var (
	// Cipher errors 🔐
	ErrInvalidBlockLength = errors.New("❌ invalid block length")

	// Container errors 📦
	ErrInvalidLength  = errors.New("❌ invalid save length")
	ErrInvalidPadding = errors.New("❌ invalid padding")

	// Save file errors 💾
	ErrSaveNotFound = errors.New("❌ save file not found")
	ErrNotGenuine   = errors.New("❌ save failed checksum or magic validation")
	ErrLocked       = errors.New("❌ save file is locked by another process")

	// Backup errors 🗄️
	ErrBackupNotFound = errors.New("❌ backup not found")
)
