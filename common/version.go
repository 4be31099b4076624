/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package common contains logging and versioning shared by the engine's subpackages.
package common

// Version is the engine's semantic version, bumped on release.
const Version = "0.1.0"
