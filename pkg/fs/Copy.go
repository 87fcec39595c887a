// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package fs

import (
	"context"
)

// Copy copies the entry at input.SourceName to input.DestinationName.
// Symbolic links are recreated with the same target, directories are merged recursively
// into the destination, and everything else is copied as a file with its metadata.
// Errors are returned to the caller as is.
func Copy(ctx context.Context, input *CopyInput) error {
	fileSystem := input.FileSystem

	sourceFileInfo, err := fileSystem.Lstat(ctx, input.SourceName)
	if err != nil {
		return newCopyError(input.SourceName, "", err)
	}

	if input.Logger != nil {
		input.Logger.Debug("Copying", map[string]interface{}{
			"src":  input.SourceName,
			"dst":  input.DestinationName,
			"link": sourceFileInfo.IsSymlink(),
		})
	}

	if sourceFileInfo.IsSymlink() {
		return copySymlink(ctx, input)
	}

	if sourceFileInfo.IsDir() {
		return copyDirectory(ctx, input)
	}

	err = fileSystem.CopyFile(ctx, input.SourceName, input.DestinationName)
	if err != nil {
		return newCopyError(input.SourceName, input.DestinationName, err)
	}

	return nil
}

func copySymlink(ctx context.Context, input *CopyInput) error {
	fileSystem := input.FileSystem

	target, err := fileSystem.Readlink(ctx, input.SourceName)
	if err != nil {
		return newCopyError(input.SourceName, input.DestinationName, err)
	}

	// remove the existing entry first, since symlink fails if the name is taken
	if err := fileSystem.Remove(ctx, input.DestinationName); err != nil && !fileSystem.IsNotExist(err) {
		return newLinkError(target, input.DestinationName, err)
	}

	if err := fileSystem.Symlink(ctx, target, input.DestinationName); err != nil {
		return newLinkError(target, input.DestinationName, err)
	}

	return nil
}

func copyDirectory(ctx context.Context, input *CopyInput) error {
	fileSystem := input.FileSystem

	if _, err := fileSystem.Stat(ctx, input.DestinationName); err != nil {
		if !fileSystem.IsNotExist(err) {
			return newCopyError(input.SourceName, input.DestinationName, err)
		}
		if err := fileSystem.MkdirAll(ctx, input.DestinationName, 0755); err != nil {
			return newCopyError(input.SourceName, input.DestinationName, err)
		}
	}

	names, err := fileSystem.ReadDirNames(ctx, input.SourceName)
	if err != nil {
		return newCopyError(input.SourceName, "", err)
	}

	for _, name := range names {
		err := Copy(ctx, &CopyInput{
			SourceName:      fileSystem.Join(input.SourceName, name),
			DestinationName: fileSystem.Join(input.DestinationName, name),
			FileSystem:      fileSystem,
			Logger:          input.Logger,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
