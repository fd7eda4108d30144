package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/readersforest/internal/config"
)

// Messages shown on the login and registration pages.
const (
	MsgPleaseSignIn         = "Please Sign In"
	MsgInvalidCredentials   = "Your username or password is incorrect. Try again."
	MsgTooManyAttempts      = "Too many login attempts. Please try again later."
	MsgLoggedOut            = "You've successfully logged out. Log back in?"
	MsgRegisterPrompt       = "Please submit your information below."
	MsgUsernameTaken        = "Sorry, this username already exists. Try again."
	MsgFirstNameRequired    = "Please fill in a first name."
	MsgLastNameRequired     = "Please fill in a last name."
	MsgUsernameRequired     = "Please fill in a username."
	MsgPasswordRequired     = "Please fill in a password."
	MsgPasswordTooShort     = "Please choose a password of at least 8 characters."
	MsgPasswordTooLong      = "Please choose a password of at most 72 characters."
	MsgRegistrationComplete = "Successful Registration! Please Sign In"
	MsgTryAgain             = "Something went wrong. Try again."
)

// Renderer draws a named page. The http package supplies the implementation.
type Renderer interface {
	Render(c *gin.Context, status int, name string, data gin.H)
}

// AuthController handles login, logout and registration.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	renderer       Renderer
	rateLimiter    *RateLimiter
	onLoginFailure func()
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, renderer Renderer, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		renderer:       renderer,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRoutes) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.GET("/logout", ac.Logout)
	router.POST("/logout", ac.Logout)
	router.GET("/register", ac.RegisterPage)
	router.POST("/register", ac.Register)
}

// OnLoginFailure registers a callback run for every rejected login.
func (ac *AuthController) OnLoginFailure(fn func()) {
	ac.onLoginFailure = fn
}

// Stop releases the rate limiter's background goroutine.
func (ac *AuthController) Stop() {
	ac.rateLimiter.Stop()
}

// LoginPage renders the sign-in form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, "/search")
		return
	}
	ac.renderLogin(c, http.StatusOK, MsgPleaseSignIn, "")
}

// Login checks the submitted credentials and starts a session.
func (ac *AuthController) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	clientIP := c.ClientIP()

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username); !allowed {
		c.Header("Retry-After", retryAfter.String())
		ac.renderLogin(c, http.StatusTooManyRequests, MsgTooManyAttempts, username)
		return
	}

	user, err := ac.service.GetUserByCredentials(c.Request.Context(), username, password)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Error().Err(err).Msg("Login failed")
			ac.renderLogin(c, http.StatusOK, MsgTryAgain, username)
			return
		}
		if ac.onLoginFailure != nil {
			ac.onLoginFailure()
		}
		if locked, _ := ac.rateLimiter.RecordFailure(clientIP, username); locked {
			log.Warn().Str("ip", clientIP).Str("username", username).Msg("Login locked out after repeated failures")
		}
		ac.renderLogin(c, http.StatusOK, MsgInvalidCredentials, username)
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, username)

	if err := ac.sessionManager.CreateSession(c.Request.Context(), user); err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to create session")
		ac.renderLogin(c, http.StatusOK, MsgTryAgain, username)
		return
	}

	c.Redirect(http.StatusSeeOther, "/search")
}

// Logout destroys the session and shows the login form.
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.sessionManager.DestroySession(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to destroy session")
	}
	ac.renderLogin(c, http.StatusOK, MsgLoggedOut, "")
}

// RegisterPage renders the registration form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	ac.renderRegister(c, http.StatusOK, MsgRegisterPrompt, nil)
}

// Register creates an account and asks the user to sign in.
func (ac *AuthController) Register(c *gin.Context) {
	firstName := c.PostForm("first_name")
	lastName := c.PostForm("last_name")
	username := c.PostForm("username")
	password := c.PostForm("password")

	form := gin.H{
		"FirstName": firstName,
		"LastName":  lastName,
		"Username":  username,
	}
	ctx := c.Request.Context()

	if !isBlank(username) {
		exists, err := ac.service.UsernameExists(ctx, username)
		if err != nil {
			log.Error().Err(err).Msg("Failed to check username")
			ac.renderRegister(c, http.StatusOK, MsgTryAgain, form)
			return
		}
		if exists {
			ac.renderRegister(c, http.StatusOK, MsgUsernameTaken, form)
			return
		}
	}

	user, err := ac.service.CreateUser(ctx, firstName, lastName, username, password)
	if err != nil {
		msg := registrationMessage(err)
		if msg == MsgTryAgain {
			log.Error().Err(err).Msg("Registration failed")
		}
		ac.renderRegister(c, http.StatusOK, msg, form)
		return
	}

	log.Info().Uint("user_id", user.ID).Msg("User registered")
	ac.renderLogin(c, http.StatusOK, MsgRegistrationComplete, "")
}

func registrationMessage(err error) string {
	switch {
	case errors.Is(err, ErrUserExists):
		return MsgUsernameTaken
	case errors.Is(err, ErrFirstNameRequired):
		return MsgFirstNameRequired
	case errors.Is(err, ErrLastNameRequired):
		return MsgLastNameRequired
	case errors.Is(err, ErrUsernameRequired):
		return MsgUsernameRequired
	case errors.Is(err, ErrPasswordRequired):
		return MsgPasswordRequired
	case errors.Is(err, ErrPasswordTooShort):
		return MsgPasswordTooShort
	case errors.Is(err, ErrPasswordTooLong):
		return MsgPasswordTooLong
	}
	return MsgTryAgain
}

func (ac *AuthController) renderLogin(c *gin.Context, status int, message, username string) {
	ac.renderer.Render(c, status, "login.html", gin.H{
		"Title":     "Sign In",
		"Message":   message,
		"Username":  username,
		"CSRFField": CSRFTokenField(c),
	})
}

func (ac *AuthController) renderRegister(c *gin.Context, status int, message string, form gin.H) {
	data := gin.H{
		"Title":     "Register",
		"Message":   message,
		"CSRFField": CSRFTokenField(c),
	}
	for k, v := range form {
		data[k] = v
	}
	ac.renderer.Render(c, status, "register.html", data)
}
