// Package cli assembles the conductor engine and its archive from
// configuration for the command line front ends.
package cli
