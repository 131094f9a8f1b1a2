package consts

// Permissions for files and directories mediadl creates.
const (
	// ** World Readable **
	PermsGenericDir = 0o755
	PermsOutputDir  = 0o755
	PermsOutputFile = 0o644
	PermsLogFile    = 0o644

	// ** Private **
	PermsHomeProgDir = 0o750
	PermsDBFile      = 0o600
)
