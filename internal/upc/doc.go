// Package upc resolves product barcodes to retail product records.
//
// Client talks to a UPCitemdb-compatible lookup endpoint. ValidateBarcode is
// the single barcode format check shared by the resolver, the scanner session
// and the CLI; it runs before any I/O.
package upc
