// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package fmi models the self-description of a slave binary: its exposed
// variables, the interface flavours and optional capabilities it declares,
// and where its shared library lives once the archive is unpacked.
//
// Descriptors are immutable after construction and are shared through a
// run-scoped Cache keyed by the absolute binary path, because several slave
// instances of one project may reference the same binary.
//
// Only the parts of modelDescription.xml the master consumes are decoded.
// This is not a general purpose XML document API.
package fmi
