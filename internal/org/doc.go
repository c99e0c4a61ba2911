// Package org resolves tenant identifiers ("U") to the hosts that serve them.
//
// A Resolver asks a single host which U it serves by reading the tenant-info
// endpoint over an authenticated session. The Cache remembers host→U answers
// persistently, keyed by U, and enforces that a host belongs to at most one U.
//
// Cache maintenance:
//   - CleanDuplicates detects hosts claimed by more than one U and either
//     reports them or drops every conflicting U
//   - HardValidateU / HardValidateAll re-ask every cached host and drop the
//     ones that no longer confirm their U (network heavy, administrative)
//   - CleanupOldEntries drops hosts not accessed for three days; Start runs it
//     once a day
package org
