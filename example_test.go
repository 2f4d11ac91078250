package imagefs_test

import (
	"fmt"
	"io"
	"log"

	"github.com/hupe1980/imagefs"
)

// Example demonstrates the basic create/write/read cycle on an in-memory
// instance.
func Example() {
	fs := imagefs.New()

	docs, err := fs.CreateDir("docs", imagefs.RootInode)
	if err != nil {
		log.Fatal(err)
	}

	if _, err := fs.CreateFile("hello.txt", docs); err != nil {
		log.Fatal(err)
	}

	fd, err := fs.OpenFile("hello.txt", docs)
	if err != nil {
		log.Fatal(err)
	}
	defer fs.CloseFile(fd)

	if _, err := fs.Write(fd, []byte("hello world")); err != nil {
		log.Fatal(err)
	}
	if _, err := fs.Seek(fd, 0, io.SeekStart); err != nil {
		log.Fatal(err)
	}

	buf := make([]byte, 11)
	n, err := fs.Read(fd, buf)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(string(buf[:n]))
	// Output: hello world
}

// Example_symlink demonstrates storing and resolving a symbolic link.
func Example_symlink() {
	fs := imagefs.New()

	if _, err := fs.CreateFile("target.txt", imagefs.RootInode); err != nil {
		log.Fatal(err)
	}
	if _, err := fs.Symlink("shortcut", "/target.txt", imagefs.RootInode); err != nil {
		log.Fatal(err)
	}

	// Links are never followed implicitly; read the target and resolve it.
	target, err := fs.ReadLink("shortcut", imagefs.RootInode)
	if err != nil {
		log.Fatal(err)
	}
	ino, err := fs.Resolve(target)
	if err != nil {
		log.Fatal(err)
	}

	fi, err := fs.StatInode(ino)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(target, fi.Name)
	// Output: /target.txt target.txt
}

// Example_pathOf demonstrates absolute path reconstruction.
func Example_pathOf() {
	fs := imagefs.New()

	a, _ := fs.CreateDir("a", imagefs.RootInode)
	b, _ := fs.CreateDir("b", a)
	f, _ := fs.CreateFile("f.txt", b)

	path, err := fs.PathOf(f)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(path)
	// Output: /a/b/f.txt
}
