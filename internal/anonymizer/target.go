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
package anonymizer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/dataset"
)

// ExistingTablePolicy decides what happens when the destination already exists.
type ExistingTablePolicy string

const (
	// DropExisting drops and recreates the destination.
	DropExisting ExistingTablePolicy = "drop"
	// SuffixExisting writes to a new destination named <target>_MM-DD-YY.
	SuffixExisting ExistingTablePolicy = "suffix"
	// RejectExisting fails the job.
	RejectExisting ExistingTablePolicy = "reject"
)

// SuffixLayout formats the date appended to a duplicate destination.
const SuffixLayout = "01-02-06"

func ParseExistingTablePolicy(s string) (ExistingTablePolicy, error) {
	switch p := ExistingTablePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DropExisting, SuffixExisting, RejectExisting:
		return p, nil
	case "":
		return SuffixExisting, nil
	}
	return "", fmt.Errorf("unknown existing table policy %q (want drop, suffix or reject)", s)
}

// TargetName is the destination name used for a source table.
func TargetName(prefix, source string) string {
	if prefix == "" {
		return source
	}
	return prefix + "_" + source
}

// prepareTarget applies the existing-table policy and creates the destination
// with the source's layout. It returns the name actually written to.
func (a *Anonymizer) prepareTarget(ctx context.Context, source, target string, columns []dataset.ColumnDescriptor) (string, error) {
	exists, err := a.sink.Exists(ctx, target)
	if err != nil {
		return "", fmt.Errorf("failed to check destination %s: %w", target, err)
	}
	if exists {
		switch a.opts.ExistingTable {
		case DropExisting:
			zap.S().Infof("INFO: Table[%s] Dropping existing destination %s", source, target)
			if err := a.sink.Drop(ctx, target); err != nil {
				return "", fmt.Errorf("failed to drop destination %s: %w", target, err)
			}
		case RejectExisting:
			return "", &ErrSchemaMismatch{Msg: fmt.Sprintf("destination %s already exists", target)}
		default:
			suffixed := target + "_" + a.now().Format(SuffixLayout)
			taken, err := a.sink.Exists(ctx, suffixed)
			if err != nil {
				return "", fmt.Errorf("failed to check destination %s: %w", suffixed, err)
			}
			if taken {
				return "", &ErrSchemaMismatch{Msg: fmt.Sprintf("destinations %s and %s already exist", target, suffixed)}
			}
			zap.S().Infof("INFO: Table[%s] Destination %s exists, writing to %s", source, target, suffixed)
			target = suffixed
		}
	}
	if err := a.sink.EnsureSchema(ctx, source, target, columns); err != nil {
		return "", fmt.Errorf("failed to create destination %s: %w", target, err)
	}
	return target, nil
}
