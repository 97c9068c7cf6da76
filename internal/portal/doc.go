// Package portal provides the configuration portal served while the node
// is in its Configuration state.
//
// The portal is a small HTTP server (chi) that shows an index page, serves
// static assets, and accepts a settings document. Accepted settings are
// handed to the Configuration state through the Submissions channel; the
// portal never touches the device itself. The server can be announced on
// the local network with mDNS so the node is found without knowing its
// address.
//
// The server follows the same lifecycle pattern as other components:
//
//	srv, err := portal.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
//
// Security Considerations:
//   - When an admin password is set (in the settings or the node config),
//     the settings API requires HTTP basic auth.
//   - Admin passwords are stored as Argon2id PHC strings.
//   - Static file paths containing ".." are rejected.
package portal
