package config

import "strings"

// ConvertHTTPSToSSH rewrites an HTTPS clone URL into SSH form
// (https://host/path → git@host:path). Unrecognized URLs are returned
// unchanged.
func ConvertHTTPSToSSH(httpsURL string) string {
	if !strings.HasPrefix(httpsURL, "https://") {
		return httpsURL
	}

	withoutScheme := strings.TrimPrefix(httpsURL, "https://")
	parts := strings.SplitN(withoutScheme, "/", 2)
	if len(parts) != 2 {
		return httpsURL
	}
	return "git@" + parts[0] + ":" + parts[1]
}

// ConvertSSHToHTTPS rewrites an SSH clone URL into HTTPS form
// (git@host:path → https://host/path). Unrecognized URLs are returned
// unchanged.
func ConvertSSHToHTTPS(sshURL string) string {
	if !strings.HasPrefix(sshURL, "git@") {
		return sshURL
	}

	withoutUser := strings.TrimPrefix(sshURL, "git@")
	parts := strings.SplitN(withoutUser, ":", 2)
	if len(parts) != 2 {
		return sshURL
	}
	return "https://" + parts[0] + "/" + parts[1]
}
