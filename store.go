package flow

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrProjectNotFound = errors.New("flow: project not found")
	ErrCatalogFetch    = errors.New("flow: catalog fetch failed")
	ErrSaveRejected    = errors.New("flow: save rejected by backend")
)

// BuildType selects the compile target of a project.
type BuildType string

const (
	BuildWasm  BuildType = "wasm"
	BuildCargo BuildType = "cargo"
)

// ParseBuildType validates s as a build type.
func ParseBuildType(s string) (BuildType, error) {
	switch bt := BuildType(s); bt {
	case BuildWasm, BuildCargo:
		return bt, nil
	default:
		return "", fmt.Errorf("flow: unknown build type %q (want wasm or cargo)", s)
	}
}

// LastCompile reports when a project was last compiled.
type LastCompile struct {
	ModifiedTime string `json:"modified_time"`
}

// Process identifies a running project.
type Process struct {
	ProcessID int64 `json:"process_id"`
}

// ProjectStore defines the contract for persisting and retrieving projects.
// Documents are only ever read and overwritten whole, by name.
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]Project, error)
	// GetProject returns nil, nil if no project has that name.
	GetProject(ctx context.Context, name string) (*Project, error)
	// CreateProject returns the stored project. Creating an existing name
	// returns the stored document unchanged.
	CreateProject(ctx context.Context, p *Project) (*Project, error)
	// DeleteProject is a no-op for missing names.
	DeleteProject(ctx context.Context, name string) error
}

// PackageSource provides the package listing the type catalog is built from.
type PackageSource interface {
	ListPackages(ctx context.Context) ([]Package, error)
	// GetPackage returns nil, nil if no package has that name.
	GetPackage(ctx context.Context, name string) (*Package, error)
}

// BuildService compiles and runs stored projects.
type BuildService interface {
	Compile(ctx context.Context, project string, bt BuildType) (string, error)
	LastCompile(ctx context.Context, project string, bt BuildType) (*LastCompile, error)
	Run(ctx context.Context, project string, bt BuildType) (*Process, error)
	StopProcess(ctx context.Context, processID int64) error
	ProcessLogs(ctx context.Context, processID int64) ([]string, error)
}

// Backend is the full remote build service surface.
type Backend interface {
	ProjectStore
	PackageSource
	BuildService
}
