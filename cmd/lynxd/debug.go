// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// This file changes the default GODEBUG values when building with newer
// releases of Go to enable as many of the new features and security updates
// that are not strictly backwards compatible as possible.
//
// WARNING: Do not blindly update this with each new Go release. It needs to
// be analyzed with each new release before updating to ensure none of the
// changes in the newer versions of Go that are disabled by default due to not
// being strictly backwards compatible will break the existing code.

//go:build go1.25

//go:debug default=go1.25

package main
