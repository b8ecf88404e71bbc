// Package hostmod provides ready-made Wren modules implemented in Go.
//
// Constants exposes a few module variables and the bound Wren version,
// Math a foreign Vector class with operator methods, and Assets a foreign
// Asset class with an allocation tracker. Bind generates the modules in a
// registry and binds them to a VM config:
//
//	mods, err := hostmod.Bind(binding.NewRegistry(), cfg, hostmod.Constants{}, hostmod.Math{}, hostmod.NewAssets())
package hostmod
