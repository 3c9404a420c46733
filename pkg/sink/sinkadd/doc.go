// Package sinkadd registers all sink drivers

package sinkadd
