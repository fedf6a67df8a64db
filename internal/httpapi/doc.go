// Package httpapi is the gin REST surface over the control service.
package httpapi
