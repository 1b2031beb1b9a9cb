/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/classifier"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/config"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/detector"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

// buildDetector assembles the detector and merge options from configuration.
// Unreadable name list files are logged by the loader and skipped.
func buildDetector(cfg config.DetectorConfig) (*detector.Detector, detector.MergeOptions, error) {
	sensitivity, err := detector.ParseSensitivity(cfg.Sensitivity)
	if err != nil {
		return nil, detector.MergeOptions{}, err
	}
	policy, err := detector.ParseLabelPolicy(cfg.MergeLabelPolicy)
	if err != nil {
		return nil, detector.MergeOptions{}, err
	}

	opts := detector.Options{FuzzyMatch: cfg.FuzzyMatch, Sensitivity: sensitivity}
	if len(cfg.OrgListFiles) > 0 {
		opts.Orgs, _ = detector.LoadNameList(entity.Organization, nil, cfg.OrgListFiles...)
	}
	if len(cfg.LocationListFiles) > 0 {
		opts.Locations, _ = detector.LoadNameList(entity.Location, detector.DefaultLocations, cfg.LocationListFiles...)
	}
	if len(cfg.FilterRootFiles) > 0 {
		roots, _ := detector.LoadNameList(entity.Person, detector.DefaultFilterRoots, cfg.FilterRootFiles...)
		opts.FilterRoots = roots.Names()
	}

	merge := detector.MergeOptions{ProximityThreshold: cfg.ProximityBytes, LabelPolicy: policy}
	if merge.ProximityThreshold < 0 {
		return nil, merge, fmt.Errorf("detector.proximity_bytes must not be negative, got %d", cfg.ProximityBytes)
	}
	return detector.New(opts), merge, nil
}

func buildClassifier(ctx context.Context, cfg config.ClassifierConfig) (classifier.TextClassifier, error) {
	cls, err := classifier.New(ctx, classifier.Config{Provider: cfg.Provider, APIKey: cfg.APIKey, Model: cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to create text classifier: %w", err)
	}
	return cls, nil
}

// parseHideSet turns label tokens into a set; unknown tokens are reported and dropped.
func parseHideSet(tokens []string) entity.Set {
	set, errs := entity.ParseSet(tokens)
	for _, err := range errs {
		zap.S().Warnf("WARN: Ignoring hide label: %v", err)
	}
	return set
}
