// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package address parses RFC 5322 address and address-list header values
(From, To, Cc, Bcc, Return-Path) into zero-copy token spans, used by
task.extractAddresses to pull envelope identities out of a message
without allocating beyond the parsed Address values themselves.

For the most part, this package follows the syntax as specified by RFC 5322 and
extended by RFC 6532.
Notable divergences:
  - Obsolete address formats are not parsed, including addresses with
    embedded route information.
  - No unicode normalization is performed.
*/
package address

// An AddressParser is an RFC 5322 address parser.
type AddressParser struct {
	// PermissiveLocalPart accepts leading, trailing and double dots in
	// the local part of an addr-spec.
	PermissiveLocalPart bool
}

// Parse parses a single RFC 5322 address of the
// form "Gogh Fir <gf@example.com>" or "foo@example.com".
func (p *AddressParser) Parse(address string) (*Address, error) {
	return (&addrParser{s: []byte(address), permissiveLocalPart: p.PermissiveLocalPart}).parseSingleAddress()
}

// ParseBytes parses a single RFC 5322 address of the
// form "Gogh Fir <gf@example.com>" or "foo@example.com".
func (p *AddressParser) ParseBytes(address []byte) (*Address, error) {
	return (&addrParser{s: address, permissiveLocalPart: p.PermissiveLocalPart}).parseSingleAddress()
}

// ParseList parses the given string as a list of comma-separated addresses
// of the form "Gogh Fir <gf@example.com>" or "foo@example.com".
func (p *AddressParser) ParseList(list string) ([]*Address, error) {
	return (&addrParser{s: []byte(list), permissiveLocalPart: p.PermissiveLocalPart}).parseAddressList()
}

// ParseListBytes parses the given bytes as a list of comma-separated addresses
// of the form "Gogh Fir <gf@example.com>" or "foo@example.com".
func (p *AddressParser) ParseListBytes(list []byte) ([]*Address, error) {
	return (&addrParser{s: list, permissiveLocalPart: p.PermissiveLocalPart}).parseAddressList()
}
