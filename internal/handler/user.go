package handler // handler package contains the HTTP handlers of the booking API

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/access"
    "github.com/iliyamo/cinema-ticket-booking/internal/config"
    "github.com/iliyamo/cinema-ticket-booking/internal/middleware"
    "github.com/iliyamo/cinema-ticket-booking/internal/model"
    "github.com/iliyamo/cinema-ticket-booking/internal/repository"
    "github.com/iliyamo/cinema-ticket-booking/internal/utils"
)

// OTPSender delivers a password reset code.
type OTPSender interface {
    SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error
}

// UserHandler groups account endpoints: registration, login, token
// refresh, profile and password reset.
type UserHandler struct {
    Cfg    config.Config
    Users  *repository.UserRepo
    Tokens *repository.TokenRepo
    Mail   OTPSender
    Log    *zap.Logger
    now    func() time.Time // clock
}

func NewUserHandler(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo, mail OTPSender, log *zap.Logger) *UserHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &UserHandler{Cfg: cfg, Users: users, Tokens: tokens, Mail: mail, Log: log, now: time.Now}
}

type userView struct {
    ID    string `json:"_id"`
    Name  string `json:"name"`
    Email string `json:"email"`
    Role  string `json:"role"`
}

type registerReq struct {
    Name        string `json:"name" validate:"required"`
    Email       string `json:"email" validate:"required,email"`
    Password    string `json:"password" validate:"required,min=6"`
    Role        string `json:"role" validate:"omitempty,role"`
    PhoneNumber string `json:"phoneNumber"`
    Address     string `json:"address"`
    Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
}

// Register handles POST /api/users/register.
func (h *UserHandler) Register(c echo.Context) error {
    var req registerReq
    if msg, ok := bindValid(c, &req); !ok {
        return fail(c, http.StatusBadRequest, msg)
    }
    if req.Role == "" {
        req.Role = model.RoleUser
    }
    if req.Role == model.RoleAdmin && !h.Cfg.AllowAdminSignup {
        return fail(c, http.StatusForbidden, "Admin registration is disabled")
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    u := &model.User{
        Name:        strings.TrimSpace(req.Name),
        Email:       req.Email,
        Role:        req.Role,
        PhoneNumber: req.PhoneNumber,
        Address:     req.Address,
        Gender:      req.Gender,
    }
    if err := h.Users.Create(ctx, u, req.Password, h.Cfg.BcryptCost); err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return fail(c, http.StatusConflict, "User already registered.")
        }
        return serverError(c, err)
    }
    return respond(c, http.StatusCreated, "Registration successful. Please login.", nil)
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type authData struct {
    Token        string    `json:"token"`
    RefreshToken string    `json:"refreshToken"`
    User         *userView `json:"user,omitempty"`
}

// Login handles POST /api/users/login.
func (h *UserHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    if strings.TrimSpace(req.Email) == "" || req.Password == "" {
        return fail(c, http.StatusBadRequest, "Email and password are required")
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return fail(c, http.StatusUnauthorized, "User does not exist")
        }
        return serverError(c, err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return fail(c, http.StatusUnauthorized, "Invalid password")
    }
    if utils.NeedsRehash(u.PasswordHash, h.Cfg.BcryptCost) {
        if hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost); err == nil {
            if err := h.Users.SetPasswordHash(ctx, u.ID, hash); err != nil {
                h.Log.Warn("password rehash failed", zap.String("user_id", u.ID), zap.Error(err))
            }
        }
    }

    data, err := h.issueTokens(ctx, u)
    if err != nil {
        return serverError(c, err)
    }
    data.User = &userView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
    return respond(c, http.StatusOK, "Login successful", data)
}

// issueTokens signs an access token and stores a fresh refresh token.
func (h *UserHandler) issueTokens(ctx context.Context, u *model.User) (*authData, error) {
    at, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return nil, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return nil, err
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return nil, err
    }
    return &authData{Token: at.Token, RefreshToken: refresh.Raw}, nil
}

type refreshReq struct {
    RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /api/users/refresh.  The presented refresh token is
// revoked and replaced.
func (h *UserHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return fail(c, http.StatusBadRequest, "refreshToken is required")
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    hash := utils.HashRefreshRaw(req.RefreshToken)
    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return serverError(c, err)
    }
    data, err := h.issueTokens(ctx, u)
    if err != nil {
        return serverError(c, err)
    }
    return respond(c, http.StatusOK, "Token refreshed", data)
}

// Logout handles POST /api/users/logout.  A refresh token in the body is
// revoked; a valid bearer token revokes every refresh token of its user.
func (h *UserHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)

    ctx, cancel := reqCtx(c)
    defer cancel()

    if req.RefreshToken != "" {
        if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(req.RefreshToken)); err != nil {
            return serverError(c, err)
        }
    }
    if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
        claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
        if err == nil {
            if err := h.Tokens.RevokeAllForUser(ctx, claims.UserID); err != nil {
                return serverError(c, err)
            }
        }
    }
    return respond(c, http.StatusOK, "Logged out", nil)
}

// CurrentUser handles GET /api/users/get-current-user.
func (h *UserHandler) CurrentUser(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, middleware.UserID(c))
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return fail(c, http.StatusNotFound, "User not found")
        }
        return serverError(c, err)
    }
    return respond(c, http.StatusOK, "Current user fetched successfully", u)
}

type profileReq struct {
    UserID      string  `json:"userId"`
    Name        *string `json:"name"`
    PhoneNumber *string `json:"phoneNumber"`
    Address     *string `json:"address"`
    Gender      *string `json:"gender" validate:"omitempty,oneof=male female other"`
}

// UpdateProfile handles POST /api/users/update-profile.  Only the caller's
// own profile can be changed; email, role and password are not editable
// here.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
    var req profileReq
    if msg, ok := bindValid(c, &req); !ok {
        return fail(c, http.StatusBadRequest, msg)
    }
    self := middleware.UserID(c)
    if req.UserID != "" && req.UserID != self {
        return fail(c, http.StatusForbidden, "You can only update your own profile")
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, self)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return fail(c, http.StatusNotFound, "User not found")
        }
        return serverError(c, err)
    }
    if req.Name != nil {
        name := strings.TrimSpace(*req.Name)
        if name == "" {
            return fail(c, http.StatusBadRequest, "name cannot be empty")
        }
        u.Name = name
    }
    if req.PhoneNumber != nil {
        u.PhoneNumber = *req.PhoneNumber
    }
    if req.Address != nil {
        u.Address = *req.Address
    }
    if req.Gender != nil {
        u.Gender = *req.Gender
    }
    if err := h.Users.UpdateProfile(ctx, u); err != nil {
        return serverError(c, err)
    }
    return respond(c, http.StatusOK, "Profile updated successfully", u)
}

type forgetReq struct {
    Email string `json:"email"`
}

// ForgetPassword handles PATCH /api/users/forgetpassword.  It stores a new
// one-time code and emails it; a delivery failure is logged, not reported.
func (h *UserHandler) ForgetPassword(c echo.Context) error {
    var req forgetReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
        return fail(c, http.StatusUnauthorized, "Please enter the email for forget password.")
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return fail(c, http.StatusNotFound, "User not found")
        }
        return serverError(c, err)
    }
    code, err := utils.NewOTP()
    if err != nil {
        return serverError(c, err)
    }
    expires := h.now().Add(utils.OTPTTL).UnixMilli()
    if err := h.Users.SetOTP(ctx, u.ID, utils.HashOTP(code), expires); err != nil {
        return serverError(c, err)
    }
    if h.Mail != nil {
        if err := h.Mail.SendOTP(ctx, u.Email, u.Name, code, utils.OTPTTL); err != nil {
            h.Log.Warn("otp email failed", zap.String("user_id", u.ID), zap.Error(err))
        }
    }
    return respond(c, http.StatusOK, "Otp sent to your email id.", nil)
}

type resetReq struct {
    Password string `json:"password"`
    OTP      string `json:"otp"`
}

// ResetPassword handles PATCH /api/users/resetpassword/:email.  The code is
// single use: a successful reset clears it and revokes refresh tokens.
func (h *UserHandler) ResetPassword(c echo.Context) error {
    var req resetReq
    if err := c.Bind(&req); err != nil || req.Password == "" || strings.TrimSpace(req.OTP) == "" {
        return fail(c, http.StatusUnauthorized, "Invalid request!")
    }
    if len(req.Password) < 6 {
        return fail(c, http.StatusBadRequest, "password must be at least 6 characters")
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, c.Param("email"))
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return fail(c, http.StatusNotFound, "User not found")
        }
        return serverError(c, err)
    }
    if u.OTPHash == "" || utils.OTPExpired(u.OTPExpiresAt, h.now()) {
        return fail(c, http.StatusUnauthorized, "otp expired.")
    }
    if !utils.OTPMatches(u.OTPHash, strings.TrimSpace(req.OTP)) {
        return fail(c, http.StatusUnauthorized, "Invalid otp.")
    }
    newHash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
    if err != nil {
        return serverError(c, err)
    }
    if err := h.Users.ResetPassword(ctx, u.ID, u.OTPHash, newHash); err != nil {
        if errors.Is(err, repository.ErrOTPMismatch) {
            return fail(c, http.StatusUnauthorized, "Invalid otp.")
        }
        return serverError(c, err)
    }
    if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
        h.Log.Warn("revoke refresh tokens failed", zap.String("user_id", u.ID), zap.Error(err))
    }
    return respond(c, http.StatusOK, "Password reset successfully", nil)
}

type capabilityView struct {
    Path    string `json:"path"`
    Allowed bool   `json:"allowed"`
    Home    string `json:"home"`
}

// CanAccess handles GET /api/users/can-access?path=.  The SPA uses it to
// decide whether to render a page or redirect to home.
func (h *UserHandler) CanAccess(c echo.Context) error {
    role := middleware.Role(c)
    path := c.QueryParam("path")
    if path == "" {
        path = "/"
    }
    return respond(c, http.StatusOK, "", capabilityView{
        Path:    path,
        Allowed: access.PathAllowed(role, path),
        Home:    access.HomePath(role),
    })
}
