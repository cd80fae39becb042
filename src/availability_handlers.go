package main

import (
	"hms/src/config"
	"hms/src/types"
	"hms/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func availabilityHandlers(g *gin.RouterGroup, catalog config.CapacityCatalog) *gin.RouterGroup {
	g.
		GET("/availability", func(ctx *gin.Context) {
			var query types.AvailabilityQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "InvalidQuery"})
				return
			}
			stats, err := utils.CheckAvailability(catalog, query.RoomType, query.HostelType, query.CheckIn, query.CheckOut)
			if err != nil {
				log.Printf("Error checking availability: %s\n", err.Error())
				ctx.JSON(types.HTTPStatus(err), gin.H{"error": err.Error(), "code": types.ErrorCode(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": stats})
		})
	return g
}
