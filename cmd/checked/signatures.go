package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/artpar/checked/core/expect"
	"github.com/artpar/checked/core/schema"
)

// signaturePaths returns args, or the configured signature locations when
// args is empty.
func signaturePaths(args []string) []string {
	if len(args) > 0 {
		return args
	}
	var paths []string
	if cfg != nil {
		if cfg.Signatures.Dir != "" {
			paths = append(paths, cfg.Signatures.Dir)
		}
		paths = append(paths, cfg.Signatures.Files...)
	}
	return paths
}

// collectFiles expands directories into the declaration files below them.
// Plain file arguments are kept whatever their extension.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && schema.IsDeclarationFile(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// fileResult is the outcome of parsing and compiling one declaration file.
type fileResult struct {
	path  string
	decls []schema.Declaration
	err   error
}

// parseFiles parses and compiles every file concurrently. Results keep the
// order of files; a failing file does not stop the others. Files skipped
// because ctx was cancelled carry ctx's error.
func parseFiles(ctx context.Context, reg *expect.Registry, files []string) []fileResult {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = fileResult{path: path, err: err}
				return err
			}
			res := fileResult{path: path}
			res.decls, res.err = schema.ParseFile(path)
			if res.err == nil {
				for _, d := range res.decls {
					if _, err := d.Compile(reg); err != nil {
						res.err = fmt.Errorf("%s: %w", path, err)
						break
					}
				}
			}
			results[i] = res
			return nil
		})
	}
	// Only a cancelled ctx fails the group, and each skipped file already
	// records that error.
	_ = g.Wait()

	return results
}

// loadCatalog reads every declaration under paths into one catalog.
func loadCatalog(ctx context.Context, reg *expect.Registry, paths []string) (*schema.Catalog, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no signature files given (pass --sig or set signatures.dir)")
	}

	files, err := collectFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no signature files found in %v", paths)
	}

	var decls []schema.Declaration
	for _, res := range parseFiles(ctx, reg, files) {
		if res.err != nil {
			return nil, res.err
		}
		decls = append(decls, res.decls...)
	}

	return schema.NewCatalog(reg, decls)
}

// pickFunction resolves the function to call: name if given, else the only
// function in the catalog.
func pickFunction(cat *schema.Catalog, name string) (schema.Compiled, error) {
	if name != "" {
		c, ok := cat.Lookup(name)
		if !ok {
			names := cat.Names()
			sort.Strings(names)
			return schema.Compiled{}, fmt.Errorf("function %q not declared (have %v)", name, names)
		}
		return c, nil
	}

	if cat.Len() != 1 {
		return schema.Compiled{}, fmt.Errorf("%d functions declared, pick one with --func", cat.Len())
	}
	c, _ := cat.Lookup(cat.Names()[0])
	return c, nil
}
