// Package redirects locates the "//go:redirect-from" directives in the kernel
// sources and patches the redirect table of a linked kernel image so that the
// boot code can point runtime functions such as runtime.gopanic at their
// kernel replacements.
package redirects

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// TableSection is the ELF section that holds the redirect table.
const TableSection = ".goredirectstbl"

const directive = "//go:redirect-from"

// Redirect maps the runtime symbol Src to the kernel function Dst.
type Redirect struct {
	Src string
	Dst string

	SrcVMA uint64
	DstVMA uint64
}

// ModulePath returns the module path declared in the go.mod file found in
// moduleRoot.
func ModulePath(moduleRoot string) (string, error) {
	data, err := os.ReadFile(filepath.Join(moduleRoot, "go.mod"))
	if err != nil {
		return "", err
	}

	modPath := modfile.ModulePath(data)
	if modPath == "" {
		return "", fmt.Errorf("%s: missing module directive", filepath.Join(moduleRoot, "go.mod"))
	}
	return modPath, nil
}

// collectGoFiles returns the non-test Go files below dir.
func collectGoFiles(dir string) ([]string, error) {
	var goFiles []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		if filepath.Ext(p) == ".go" && !strings.HasSuffix(p, "_test.go") {
			goFiles = append(goFiles, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return goFiles, nil
}

// Find scans the Go files below moduleRoot/subdir for redirect directives.
// Destination symbols are qualified with the module path found in
// moduleRoot/go.mod.
func Find(moduleRoot, subdir string) ([]*Redirect, error) {
	modPath, err := ModulePath(moduleRoot)
	if err != nil {
		return nil, err
	}

	goFiles, err := collectGoFiles(filepath.Join(moduleRoot, subdir))
	if err != nil {
		return nil, err
	}

	var redirects []*Redirect
	for _, goFile := range goFiles {
		fset := token.NewFileSet()

		f, err := parser.ParseFile(fset, goFile, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", goFile, err)
		}

		relDir, err := filepath.Rel(moduleRoot, filepath.Dir(goFile))
		if err != nil {
			return nil, err
		}
		pkgPath := path.Join(modPath, filepath.ToSlash(relDir))

		for _, decl := range f.Decls {
			fnDecl, ok := decl.(*ast.FuncDecl)
			if !ok || fnDecl.Doc == nil || fnDecl.Recv != nil {
				continue
			}

			for _, comment := range fnDecl.Doc.List {
				if !strings.HasPrefix(comment.Text, directive) {
					continue
				}

				// build qualified name to fn
				fqName := pkgPath + "." + fnDecl.Name.Name

				fields := strings.Fields(comment.Text)
				if len(fields) != 2 || fields[0] != directive {
					return nil, fmt.Errorf("malformed go:redirect-from syntax for %q", fqName)
				}

				redirects = append(redirects, &Redirect{
					Src: fields[1],
					Dst: fqName,
				})
			}
		}
	}

	return redirects, nil
}

// ResolveSymbols fills in the addresses of the source and destination symbols
// of each redirect using the symbol table of imgFile.
func ResolveSymbols(redirects []*Redirect, imgFile string) error {
	f, err := elf.Open(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	symbols, err := f.Symbols()
	if err != nil {
		return err
	}

	for _, redirect := range redirects {
		for _, symbol := range symbols {
			if symbol.Name == redirect.Src {
				redirect.SrcVMA = symbol.Value
			}
			if symbol.Name == redirect.Dst {
				redirect.DstVMA = symbol.Value
			}
		}

		switch {
		case redirect.SrcVMA == 0:
			return fmt.Errorf("%s: could not locate address of %q", imgFile, redirect.Src)
		case redirect.DstVMA == 0:
			return fmt.Errorf("%s: could not locate address of %q", imgFile, redirect.Dst)
		}
	}

	return nil
}

// tableOffset returns the file offset and size of the redirect table.
func tableOffset(imgFile string) (uint64, uint64, error) {
	f, err := elf.Open(imgFile)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	section := f.Section(TableSection)
	if section == nil {
		return 0, 0, fmt.Errorf("%s: missing %s section", imgFile, TableSection)
	}

	return section.Offset, section.Size, nil
}

// WriteTable stores the resolved redirects in the redirect table of imgFile
// as (src, dst) pairs of little-endian 64-bit addresses.
func WriteTable(redirects []*Redirect, imgFile string) error {
	offset, size, err := tableOffset(imgFile)
	if err != nil {
		return err
	}

	if need := uint64(len(redirects)) * 16; need > size {
		return fmt.Errorf("%s: %s section holds %d bytes; %d redirects need %d", imgFile, TableSection, size, len(redirects), need)
	}

	f, err := os.OpenFile(imgFile, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = f.Seek(int64(offset), io.SeekStart); err != nil {
		return err
	}

	buf := make([]byte, 0, len(redirects)*16)
	for _, redirect := range redirects {
		buf = binary.LittleEndian.AppendUint64(buf, redirect.SrcVMA)
		buf = binary.LittleEndian.AppendUint64(buf, redirect.DstVMA)
	}

	if _, err = f.Write(buf); err != nil {
		return err
	}
	return f.Close()
}
