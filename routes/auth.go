package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lms-ai-backend/middleware"
	"lms-ai-backend/models"
	"lms-ai-backend/services"
	"lms-ai-backend/utils"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

func setAuthCookies(c *gin.Context, resp *models.TokenPairResponse, secure bool) {
	now := time.Now()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, resp.AccessToken, int(resp.AccessExp.Sub(now).Seconds()), "/", "", secure, true)
	c.SetCookie(refreshCookie, resp.RefreshToken, int(resp.RefreshExp.Sub(now).Seconds()), "/api/auth", "", secure, true)
}

func clearAuthCookies(c *gin.Context, secure bool) {
	c.SetCookie(accessCookie, "", -1, "/", "", secure, true)
	c.SetCookie(refreshCookie, "", -1, "/api/auth", "", secure, true)
}

// SetupAuthRoutes registers account routes. Registration, login and refresh
// are public; the rest go through protected.
func SetupAuthRoutes(public, protected *gin.RouterGroup, users *services.UserService, secureCookies bool) {
	authGroup := public.Group("/auth")
	account := protected.Group("/auth")

	authGroup.POST("/register", func(c *gin.Context) {
		var req models.RegisterRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		resp, err := users.Register(ctx, req)
		if err != nil {
			c.Error(err)
			return
		}
		setAuthCookies(c, resp, secureCookies)
		utils.RespondWithData(c, http.StatusCreated, resp, "User registered successfully")
	})

	authGroup.POST("/login", func(c *gin.Context) {
		var req models.LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		resp, err := users.Login(ctx, req)
		if err != nil {
			c.Error(err)
			return
		}
		setAuthCookies(c, resp, secureCookies)
		utils.RespondWithData(c, http.StatusOK, resp, "Login successful")
	})

	authGroup.POST("/refresh", func(c *gin.Context) {
		var req models.RefreshRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		if req.RefreshToken == "" {
			req.RefreshToken, _ = c.Cookie(refreshCookie)
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		resp, err := users.Refresh(ctx, req.RefreshToken)
		if err != nil {
			c.Error(err)
			return
		}
		setAuthCookies(c, resp, secureCookies)
		utils.RespondWithData(c, http.StatusOK, resp, "")
	})

	account.POST("/logout", func(c *gin.Context) {
		claims, err := middleware.GetClaims(c)
		if err != nil {
			c.Error(utils.NewUnauthorized("Not authorized"))
			return
		}
		var req models.RefreshRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		if req.RefreshToken == "" {
			req.RefreshToken, _ = c.Cookie(refreshCookie)
		}
		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		if err := users.Logout(ctx, claims, req.RefreshToken); err != nil {
			c.Error(err)
			return
		}
		clearAuthCookies(c, secureCookies)
		utils.RespondWithData(c, http.StatusOK, nil, "Logged out successfully")
	})

	account.GET("/profile", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		user, err := users.Profile(ctx, userID)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, user.Info(), "")
	})

	account.PUT("/profile", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.UpdateProfileRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		user, err := users.UpdateProfile(ctx, userID, req)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, user.Info(), "Profile updated successfully")
	})

	account.POST("/change-password", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.ChangePasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		if err := users.ChangePassword(ctx, userID, req); err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, nil, "Password changed successfully")
	})
}
