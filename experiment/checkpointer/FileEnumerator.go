package checkpointer

import "fmt"

// fileEnumerator enumerates filenames
type fileEnumerator struct {
	i       int
	pattern string
}

// filename returns the name of the next consecutive enumerated file
func (f *fileEnumerator) filename() string {
	f.i++
	return fmt.Sprintf(f.pattern, f.i)
}

// FilenameEnumerator returns a function which will return filenames
// with a counter integer suffix. Each time the returned function is
// called, the filename counter suffix will be one higher than on the
// previous call, starting at start+1. The filename parameter is the
// full filename with its path, while the extension parameter
// determines the file extension.
func FilenameEnumerator(start int, filename, extension string) func() string {
	return FilenamePattern(start, filename+"%v"+extension)
}

// FilenamePattern is like FilenameEnumerator, but the counter is
// formatted into pattern, e.g. "checkpoints/params-%04d.bin"
func FilenamePattern(start int, pattern string) func() string {
	enum := fileEnumerator{i: start, pattern: pattern}

	return enum.filename
}
