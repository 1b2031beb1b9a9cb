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
package classifier

import (
	"fmt"
)

// ErrClassifierFailure means a batch could not be classified: the model call
// failed or returned a result that does not line up with the input.
type ErrClassifierFailure struct {
	Msg string
	Err error
}

// ErrUnavailable represents transient model errors worth retrying
type ErrUnavailable struct {
	Msg string
	Err error
}

// ErrCancelled represents errors when an operation is cancelled
type ErrCancelled struct {
	Msg string
	Err error
}

func (e *ErrClassifierFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("classifier failure: %s", e.Msg)
	}
	return fmt.Sprintf("classifier failure: %s: %v", e.Msg, e.Err)
}

func (e *ErrClassifierFailure) Unwrap() error {
	return e.Err
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("model unavailable: %s: %v", e.Msg, e.Err)
}

func (e *ErrUnavailable) Unwrap() error {
	return e.Err
}

func (e *ErrCancelled) Error() string {
	return fmt.Sprintf("operation cancelled: %s: %v", e.Msg, e.Err)
}

func (e *ErrCancelled) Unwrap() error {
	return e.Err
}
