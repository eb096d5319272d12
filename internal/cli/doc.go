// Package cli implements the cosyncjwt command-line driver.
//
// Settings resolve in order: defaults, the YAML file named by --config, the
// COSYNCJWT_* environment variables, then flags. Passwords and codes are read
// from the terminal without echo, or line by line when stdin is not a terminal.
package cli
