// Package auth provides authentication and authorization for the lending API.
//
// Clients authenticate with a Bearer JWT returned by POST /api/login. When
// cookie sessions are enabled, the same login also starts an scs session and
// state-changing cookie requests must carry a gorilla/csrf token.
//
// # Configuration
//
//	AUTH_JWT_SECRET=<random string>        # Required, signs HS256 tokens
//	AUTH_TOKEN_EXPIRY=24h                  # Bearer token lifetime
//	AUTH_BCRYPT_COST=12                    # bcrypt cost factor
//	AUTH_SESSIONS_ENABLED=false            # Cookie sessions + CSRF
//	AUTH_SESSION_LIFETIME=24h              # Session duration
//	AUTH_SECURE_COOKIES=true               # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5              # Failures before lockout
//	REDIS_ADDR=localhost:6379              # Shared login limiter, optional
//
// # Usage
//
//	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
//	authService := auth.NewService(userRepo, tokens, nil, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager)
//	router.Use(authMiddleware.Handler())
//	api.POST("/rent", authMiddleware.RequireAuth(), rent.Borrow)
//
// Extract user in handlers:
//
//	userID := auth.GetUserID(c)  // "" for anonymous requests
package auth
