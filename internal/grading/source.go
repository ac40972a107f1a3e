package grading

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/scorm-engine/internal/content"
)

// PackagePolicySource derives grading policy and completion thresholds
// from the package store, falling back to engine-wide defaults for
// packages imported without settings.
type PackagePolicySource struct {
	packages content.PackageStore
	defaults Policy
}

func NewPackagePolicySource(packages content.PackageStore, defaults Policy) *PackagePolicySource {
	return &PackagePolicySource{packages: packages, defaults: defaults}
}

func (s *PackagePolicySource) PolicyFor(ctx context.Context, packageID string) (Policy, Requirements, error) {
	pkg, err := s.packages.GetPackage(ctx, packageID)
	if errors.Is(err, content.ErrPackageNotFound) {
		return s.defaults, Requirements{}, nil
	}
	if err != nil {
		return Policy{}, Requirements{}, fmt.Errorf("load package %s: %w", packageID, err)
	}

	p := Policy{
		Method:     Method(pkg.GradeMethod),
		WhatGrade:  WhatGrade(pkg.WhatGrade),
		MaxAttempt: pkg.MaxAttempt,
		Version:    pkg.Version,
	}
	if p.Method == "" {
		p.Method = s.defaults.Method
	}
	if p.WhatGrade == "" {
		p.WhatGrade = s.defaults.WhatGrade
	}
	req := Requirements{
		StatusMask: pkg.CompletionStatusMask,
		AllSCOs:    pkg.CompletionAllSCOs,
		MinScore:   pkg.CompletionScoreMin,
	}
	return p, req, nil
}
