// Package main is the trichat binary: an HTTP relay that fans each chat
// message out to three language models through OpenRouter and returns all
// replies together. See package commands for the CLI surface.
package main
