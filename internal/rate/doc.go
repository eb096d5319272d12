// Package rate throttles failed logins per handle with Redis counters.
//
// Each handle gets a fixed window that opens on its first failure and lasts
// LoginCooldownDuration. Once MaxLoginAttempts failures are recorded the
// handle is rejected until the window expires or a login succeeds.
package rate
