package main

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/qist_backend/analytics"
	"bitbucket.org/mmdatafocus/qist_backend/export"
	"bitbucket.org/mmdatafocus/qist_backend/middlewares"
	"bitbucket.org/mmdatafocus/qist_backend/models"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
)

func registerRoutes(r *gin.Engine) {
	r.POST("/auth/login", loginHandler())

	v1 := r.Group("/v1")

	v1.GET("/profiles", listProfilesHandler())
	v1.POST("/profiles", middlewares.RequireDevice(), addProfileHandler())

	v1.GET("/customers", listCustomersHandler())
	v1.GET("/customers/:id", getCustomerHandler())
	v1.GET("/customers/:id/projects", customerProjectsHandler())
	v1.POST("/customers", middlewares.RequireDevice(), addCustomerHandler())
	v1.PATCH("/customers/:id", middlewares.RequireDevice(), updateCustomerHandler())
	v1.DELETE("/customers/:id", middlewares.RequireDevice(), deleteCustomerHandler())
	v1.POST("/customers/bulk-status", middlewares.RequireDevice(), bulkStatusHandler(models.TableCustomers))

	v1.GET("/installments", listInstallmentsHandler())
	v1.GET("/installments/daily", dailyInstallmentsHandler())
	v1.POST("/installments", middlewares.RequireDevice(), addInstallmentHandler())

	v1.GET("/projects", listProjectsHandler())
	v1.GET("/projects/:id", getProjectHandler())
	v1.POST("/projects", middlewares.RequireDevice(), addProjectHandler())
	v1.PATCH("/projects/:id", middlewares.RequireDevice(), updateProjectHandler())
	v1.POST("/projects/bulk-status", middlewares.RequireDevice(), bulkStatusHandler(models.TableProjects))

	v1.GET("/investments", listInvestmentsHandler())
	v1.POST("/investments", middlewares.RequireDevice(), addInvestmentHandler())
	v1.DELETE("/investments/:id", middlewares.RequireDevice(), deleteInvestmentHandler())

	v1.GET("/dashboard", dashboardHandler())
	v1.GET("/dashboard/enhanced", enhancedDashboardHandler())

	v1.GET("/analytics/customers", customerAnalyticsHandler())
	v1.GET("/analytics/risk", riskAnalysisHandler())
	v1.GET("/analytics/trends", paymentTrendsHandler())
	v1.GET("/analytics/projects", projectAnalyticsHandler())
	v1.GET("/analytics/overdue", overduePaymentsHandler())

	v1.GET("/export/customers", exportCustomersHandler())
	v1.GET("/export/payments", exportPaymentsHandler())

	v1.POST("/sync", triggerSyncHandler())
	v1.GET("/sync/status", syncStatusHandler())
	v1.GET("/sync/runs", syncRunsHandler())
	v1.GET("/sync/runs/:id/errors", syncErrorsHandler())
	v1.POST("/sync/compact", middlewares.RequireDevice(), compactHandler())

	v1.POST("/uploads", middlewares.RequireDevice(), uploadHandler())
	r.Static("/files", uploadDir())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

type loginRequest struct {
	DeviceId  string `json:"device_id" binding:"required"`
	DeviceKey string `json:"device_key" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !middlewares.AuthEnabled() {
			c.JSON(http.StatusNotFound, gin.H{"error": "authentication not configured"})
			return
		}
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := utils.CompareDeviceKey(os.Getenv("DEVICE_KEY_HASH"), req.DeviceKey); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		token, err := utils.JwtGenerate(req.DeviceId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// --- entity reads ---

func listProfilesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profiles, err := app.data.GetProfiles(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": profiles})
	}
}

func listCustomersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		activeOnly := c.DefaultQuery("active_only", "true") == "true"
		customers, err := app.data.GetCustomers(c.Request.Context(), profileId, activeOnly)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": customers})
	}
}

func getCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, err := app.data.GetCustomer(c.Request.Context(), c.Param("id"))
		if err != nil {
			statusForError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": customer})
	}
}

func customerProjectsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		projects, err := app.data.GetCustomerProjects(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": projects})
	}
}

func listInstallmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		customerId := c.Query("customer_id")
		if customerId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "customer_id is required"})
			return
		}
		installments, err := app.data.GetInstallments(c.Request.Context(), customerId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": installments})
	}
}

func dailyInstallmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		date := utils.ParseDateOrNow(c.Query("date")).Format("2006-01-02")
		installments, err := app.data.GetDailyInstallments(c.Request.Context(), profileId, date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": installments, "date": date})
	}
}

func listProjectsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		activeOnly := c.DefaultQuery("active_only", "true") == "true"
		projects, err := app.data.GetProjects(c.Request.Context(), profileId, activeOnly)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": projects})
	}
}

func getProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		project, err := app.data.GetProject(c.Request.Context(), c.Param("id"))
		if err != nil {
			statusForError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": project})
	}
}

func listInvestmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		investments, err := app.data.GetInvestments(c.Request.Context(), profileId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": investments})
	}
}

func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		stats, err := app.data.GetDashboardStats(c.Request.Context(), profileId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": stats})
	}
}

func enhancedDashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		stats, err := app.analytics.EnhancedDashboard(c.Request.Context(), profileId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": stats})
	}
}

// --- entity writes ---

func addProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProfile
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		profile, err := app.data.AddProfile(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": profile})
	}
}

func addCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		customer, err := app.data.AddCustomer(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": customer})
	}
}

func updateCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		customer, err := app.data.UpdateCustomer(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			statusForError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": customer})
	}
}

func deleteCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.data.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
			statusForError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func addInstallmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInstallment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		installment, err := app.data.AddInstallment(c.Request.Context(), &input)
		if err != nil {
			statusForError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": installment})
	}
}

func addProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProject
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		project, err := app.data.AddProject(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": project})
	}
}

func updateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProject
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		project, err := app.data.UpdateProject(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			statusForError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": project})
	}
}

func addInvestmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvestment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		investment, err := app.data.AddInvestment(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": investment})
	}
}

func deleteInvestmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.data.DeleteInvestment(c.Request.Context(), c.Param("id")); err != nil {
			statusForError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type bulkStatusRequest struct {
	Ids      []string `json:"ids" binding:"required"`
	IsActive *bool    `json:"is_active" binding:"required"`
}

func bulkStatusHandler(table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulkStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var updated int64
		var err error
		if table == models.TableProjects {
			updated, err = app.data.BulkSetProjectStatus(c.Request.Context(), req.Ids, *req.IsActive)
		} else {
			updated, err = app.data.BulkSetCustomerStatus(c.Request.Context(), req.Ids, *req.IsActive)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
	}
}

// --- analytics ---

func customerAnalyticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		result, err := app.analytics.CustomerAnalytics(c.Request.Context(), profileId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func riskAnalysisHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		report, err := app.analytics.RiskAnalysis(c.Request.Context(), profileId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": report})
	}
}

func paymentTrendsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		timeframe := analytics.Timeframe(c.DefaultQuery("timeframe", "month"))
		trends, err := app.analytics.PaymentTrends(c.Request.Context(), profileId, timeframe)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": trends})
	}
}

func projectAnalyticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		result, err := app.analytics.ProjectAnalytics(c.Request.Context(), profileId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func overduePaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		overdue, err := app.analytics.OverduePayments(c.Request.Context(), profileId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": overdue})
	}
}

// --- export ---

func exportCustomersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		format := export.Format(c.DefaultQuery("format", "csv"))
		result, err := app.export.Customers(c.Request.Context(), profileId, format)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+result.Filename)
		c.Data(http.StatusOK, result.ContentType, result.Data)
	}
}

func exportPaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId := c.Query("profile_id")
		if profileId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
			return
		}
		format := export.Format(c.DefaultQuery("format", "csv"))
		result, err := app.export.Payments(c.Request.Context(), profileId, c.Query("start_date"), c.Query("end_date"), format)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+result.Filename)
		c.Data(http.StatusOK, result.ContentType, result.Data)
	}
}

// --- sync ---

type triggerSyncRequest struct {
	ProfileId string `json:"profile_id"`
}

func triggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req triggerSyncRequest
		_ = c.ShouldBindJSON(&req)

		ctx, span := tracer.Start(c.Request.Context(), "sync.trigger")
		defer span.End()
		ctx = utils.SetProfileIdInContext(ctx, req.ProfileId)

		result := app.data.TriggerSync(ctx, req.ProfileId)
		status := http.StatusOK
		if !result.Success {
			status = http.StatusConflict
		}
		c.JSON(status, result)
	}
}

func syncStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"is_online":   app.data.IsOnline(),
			"sync_status": app.data.SyncStatus(),
		})
	}
}

func syncRunsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		runs, err := app.store.RecentSyncRuns(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": runs})
	}
}

func syncErrorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		runId, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}
		syncErrors, err := app.store.SyncErrorsByRun(c.Request.Context(), uint(runId))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": syncErrors})
	}
}

type compactRequest struct {
	RetentionDays int `json:"retention_days"`
}

func compactHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		req := compactRequest{RetentionDays: utils.IntFromEnv("CHANGELOG_RETENTION_DAYS", 90)}
		_ = c.ShouldBindJSON(&req)
		if req.RetentionDays <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "retention_days must be positive"})
			return
		}

		cutoff := time.Now().AddDate(0, 0, -req.RetentionDays)
		removed, err := app.store.CompactChangeLog(c.Request.Context(), cutoff)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
	}
}

func statusForError(c *gin.Context, err error) {
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
