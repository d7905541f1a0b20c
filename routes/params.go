package routes

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"lms-ai-backend/middleware"
	"lms-ai-backend/utils"
)

// pathID parses an ObjectID path parameter. A malformed ID is reported as a
// missing resource.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.Error(utils.NewNotFound("Resource not found"))
		return primitive.NilObjectID, false
	}
	return id, true
}

func bodyID(c *gin.Context, value, field string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		c.Error(utils.NewBadRequest("Invalid " + field))
		return primitive.NilObjectID, false
	}
	return id, true
}

func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := middleware.UserObjectID(c)
	if err != nil {
		c.Error(err)
		return primitive.NilObjectID, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.Error(err)
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		c.Error(err)
		return false
	}
	return true
}

func queryInt(c *gin.Context, name string, def, min, max int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
