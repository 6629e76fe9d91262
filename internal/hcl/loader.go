package hcl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"

	"github.com/specialistvlad/buildgraph/internal/config"
	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	fs afero.Fs
}

// NewLoader creates a new HCL plan loader reading from fsys. A nil fsys
// reads the operating system's file system.
func NewLoader(fsys afero.Fs) *Loader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Loader{fs: fsys}
}

// Load orchestrates the entire plan loading process. It is agnostic to the
// origin of the paths and parses any valid block from any file. Every
// problem found in the plan is reported, not only the first one.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	var roots []*fileRoot
	for _, file := range hclFiles {
		src, err := afero.ReadFile(l.fs, file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read HCL file %s: %w", file, err)
		}
		hclFile, diags := parser.ParseHCL(src, file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		for _, sb := range root.Steps {
			sb.source = blockSource(src, sb.Body)
		}
		roots = append(roots, &root)
	}

	model, err := l.translate(ctx, roots)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("HCL loading complete.", "items", len(model.Items), "steps", len(model.Steps))
	return model, NewConverter(), nil
}

// translate merges every decoded file into one model and checks references
// between blocks.
func (l *Loader) translate(ctx context.Context, roots []*fileRoot) (*config.Model, error) {
	model := &config.Model{Items: make(map[string]*config.Item)}
	var result *multierror.Error

	for _, root := range roots {
		for _, ib := range root.Items {
			item, err := translateItem(ctx, ib)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			if _, dup := model.Items[item.Name]; dup {
				result = multierror.Append(result, fmt.Errorf("item '%s' is declared more than once", item.Name))
				continue
			}
			model.Items[item.Name] = item
		}
	}

	seen := make(map[string]bool)
	for _, root := range roots {
		for _, sb := range root.Steps {
			if seen[sb.ID] {
				result = multierror.Append(result, fmt.Errorf("step '%s' is declared more than once", sb.ID))
				continue
			}
			seen[sb.ID] = true
			s, err := translateStep(sb, model.Items)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			model.Steps = append(model.Steps, s)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return model, nil
}

// blockSource returns the bytes of src covered by body.
func blockSource(src []byte, body hcl.Body) []byte {
	if body == nil {
		return nil
	}
	r := body.MissingItemRange()
	if rb, ok := body.(interface{ Range() hcl.Range }); ok {
		r = rb.Range()
	}
	if r.Start.Byte < 0 || r.End.Byte > len(src) || r.Start.Byte > r.End.Byte {
		return nil
	}
	return src[r.Start.Byte:r.End.Byte]
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		if _, err := l.fs.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		files, err := fsutil.FindFilesByExtension(l.fs, path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if _, wasSeen := seen[f]; !wasSeen {
				allFiles = append(allFiles, f)
				seen[f] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
