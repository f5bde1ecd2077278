// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
This file bridges the build system and the runtime shield. It uses the Go
embed package to bake volatility_patterns.yaml directly into the compiled
binary, so the quarantine rules are immutable at runtime and travel with
the executable.
*/

package enforcement

import (
	_ "embed"
)

// VolatilityPatterns holds the raw byte content of the
// 'volatility_patterns.yaml' file.
//
// The variable is populated at compile time via the 'embed' directive.
// Baking the YAML into the binary means the quarantine rules cannot be
// tampered with on the host filesystem without recompiling.
//
// Usage:
//
//	// Pass these bytes directly to yaml.Unmarshal
//	err := yaml.Unmarshal(enforcement.VolatilityPatterns, &targetStruct)
//
//go:embed volatility_patterns.yaml
var VolatilityPatterns []byte
