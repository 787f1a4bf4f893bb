package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"

	"github.com/rcliao/brain-jar/internal/model"
)

// dependency name (or module path prefix) to framework display name
var (
	goFrameworks = map[string]string{
		"github.com/gin-gonic/gin":   "Gin",
		"github.com/go-chi/chi":      "chi",
		"github.com/labstack/echo":   "Echo",
		"github.com/gofiber/fiber":   "Fiber",
		"github.com/gorilla/mux":     "Gorilla",
		"gorm.io/gorm":               "GORM",
		"google.golang.org/grpc":     "gRPC",
		"go.temporal.io/sdk":         "Temporal",
	}
	npmFrameworks = map[string]string{
		"react":         "React",
		"next":          "Next.js",
		"vue":           "Vue",
		"nuxt":          "Nuxt",
		"svelte":        "Svelte",
		"@angular/core": "Angular",
		"express":       "Express",
	}
	cargoFrameworks = map[string]string{
		"actix-web": "Actix",
		"axum":      "Axum",
		"rocket":    "Rocket",
		"tokio":     "Tokio",
	}
	pyFrameworks = map[string]string{
		"django":  "Django",
		"flask":   "Flask",
		"fastapi": "FastAPI",
	}
)

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

type cargoManifest struct {
	Dependencies map[string]any `toml:"dependencies"`
}

type pyProject struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type codebaseScan struct {
	p     *model.UserProfile
	seen  map[string]bool
	found []Candidate
}

func (s *codebaseScan) add(f Field, value, evidence string) {
	key := f.String() + "\x00" + strings.ToLower(value)
	if s.seen[key] || holds(f, s.p, value) {
		return
	}
	s.seen[key] = true
	s.found = append(s.found, Candidate{
		Field:      f.String(),
		Value:      model.ListValue(value),
		Confidence: "high",
		Evidence:   evidence,
		Source:     "codebase",
	})
}

// DetectFromCodebase inspects the project manifests in dir and returns
// language, framework and tool candidates the profile does not already hold.
func DetectFromCodebase(dir string, p *model.UserProfile) ([]Candidate, error) {
	s := &codebaseScan{p: p, seen: map[string]bool{}}

	steps := []struct {
		name string
		fn   func(s *codebaseScan, data []byte) error
	}{
		{"go.mod", scanGoMod},
		{"package.json", scanPackageJSON},
		{"Cargo.toml", scanCargo},
		{"pyproject.toml", scanPyProject},
	}
	for _, step := range steps {
		data, err := os.ReadFile(filepath.Join(dir, step.name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", step.name, err)
		}
		if err := step.fn(s, data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", step.name, err)
		}
	}

	if exists(dir, "requirements.txt") {
		s.add(TechnicalLanguages, "Python", "requirements.txt present")
	}
	if exists(dir, "tsconfig.json") {
		s.add(TechnicalLanguages, "TypeScript", "tsconfig.json present")
	}
	if exists(dir, "Dockerfile") || exists(dir, "docker-compose.yml") || exists(dir, "compose.yaml") {
		s.add(TechnicalTools, "Docker", "container build files present")
	}
	if exists(dir, "Makefile") {
		s.add(TechnicalTools, "Make", "Makefile present")
	}
	if exists(dir, filepath.Join(".github", "workflows")) {
		s.add(TechnicalTools, "GitHub Actions", ".github/workflows present")
	}
	return s.found, nil
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func scanGoMod(s *codebaseScan, data []byte) error {
	f, err := modfile.Parse("go.mod", data, nil)
	if err != nil {
		return err
	}
	s.add(TechnicalLanguages, "Go", "go.mod present")
	prefixes := make([]string, 0, len(goFrameworks))
	for prefix := range goFrameworks {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, req := range f.Require {
		for _, prefix := range prefixes {
			if strings.HasPrefix(req.Mod.Path, prefix) {
				s.add(TechnicalFrameworks, goFrameworks[prefix], "go.mod requires "+req.Mod.Path)
			}
		}
	}
	return nil
}

func scanPackageJSON(s *codebaseScan, data []byte) error {
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return err
	}
	deps := mergedKeys(pkg.Dependencies, pkg.DevDependencies)
	lang := "JavaScript"
	for _, d := range deps {
		if d == "typescript" {
			lang = "TypeScript"
		}
	}
	s.add(TechnicalLanguages, lang, "package.json present")
	for _, d := range deps {
		if name, ok := npmFrameworks[d]; ok {
			s.add(TechnicalFrameworks, name, "package.json depends on "+d)
		}
	}
	return nil
}

func scanCargo(s *codebaseScan, data []byte) error {
	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return err
	}
	s.add(TechnicalLanguages, "Rust", "Cargo.toml present")
	for _, d := range sortedKeys(m.Dependencies) {
		if name, ok := cargoFrameworks[d]; ok {
			s.add(TechnicalFrameworks, name, "Cargo.toml depends on "+d)
		}
	}
	return nil
}

func scanPyProject(s *codebaseScan, data []byte) error {
	var m pyProject
	if err := toml.Unmarshal(data, &m); err != nil {
		return err
	}
	s.add(TechnicalLanguages, "Python", "pyproject.toml present")
	deps := sortedKeys(m.Tool.Poetry.Dependencies)
	for _, req := range m.Project.Dependencies {
		deps = append(deps, requirementName(req))
	}
	for _, d := range deps {
		if name, ok := pyFrameworks[strings.ToLower(d)]; ok {
			s.add(TechnicalFrameworks, name, "pyproject.toml depends on "+d)
		}
	}
	return nil
}

// requirementName strips version specifiers and extras from a PEP 508 string.
func requirementName(req string) string {
	end := strings.IndexAny(req, " <>=!~;[(")
	if end < 0 {
		return strings.TrimSpace(req)
	}
	return strings.TrimSpace(req[:end])
}

func mergedKeys(maps ...map[string]string) []string {
	var keys []string
	for _, m := range maps {
		for k := range m {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
