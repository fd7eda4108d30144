// Package auth provides accounts, sign-in and request protection.
//
// Passwords are stored as bcrypt hashes. Sessions are managed by scs and
// carry the signed-in user's id and first name; they live in the SQLite
// database when one is used, otherwise in process memory.
//
// # Configuration
//
//	SESSION_SECRET=<hex-32-bytes>   # CSRF signing key, generated if empty
//	SESSION_LIFETIME=24h
//	SECURE_COOKIES=true             # HTTPS-only cookies
//	BCRYPT_COST=12
//	MAX_LOGIN_ATTEMPTS=5            # failed logins per IP+username
//	RATE_LIMIT_WINDOW=15m
//	LOCKOUT_DURATION=30m
//
// # Usage
//
//	authService := auth.NewService(users.NewRepository(db.DB), cfg.Auth)
//	sm, _ := auth.NewSessionManager(sqlDB, cfg.Session)
//	router.Use(auth.CSRFMiddleware(secret, cfg.Session.SecureCookies))
//	router.Use(sm.SessionLoadSave())
//	router.Use(auth.NewMiddleware(sm).Handler())
//
// Extract the user in handlers:
//
//	userID := auth.GetUserID(c) // 0 when anonymous
package auth
