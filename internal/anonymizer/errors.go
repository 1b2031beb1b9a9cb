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

import "fmt"

// ErrSourceNotFound means the requested source table does not exist.
type ErrSourceNotFound struct {
	Msg string
	Err error
}

// ErrSchemaMismatch means the destination exists and the policy forbids reusing it.
type ErrSchemaMismatch struct {
	Msg string
	Err error
}

// ErrSinkWrite means a page could not be written. It aborts the job.
type ErrSinkWrite struct {
	Msg string
	Err error
}

func (e *ErrSourceNotFound) Error() string {
	return fmt.Sprintf("source not found: %s", e.Msg)
}

func (e *ErrSourceNotFound) Unwrap() error {
	return e.Err
}

func (e *ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("schema mismatch: %s", e.Msg)
}

func (e *ErrSchemaMismatch) Unwrap() error {
	return e.Err
}

func (e *ErrSinkWrite) Error() string {
	return fmt.Sprintf("sink write failed: %s: %v", e.Msg, e.Err)
}

func (e *ErrSinkWrite) Unwrap() error {
	return e.Err
}
