package gxb

// BuildDate is stamped at link time (e.g. -ldflags "-X
// gunderscript/gxb.BuildDate=2026-08-01"), mirroring the
// buildDate-as-a-package-variable idiom used for the CLI's own version
// string in the retrieved corpus. A .gxb file written by one build can
// only be loaded by a VM whose BuildDate matches exactly (§6.2): the
// instruction encoding is not stabilized across builds.
var BuildDate = "0000-00-00"
