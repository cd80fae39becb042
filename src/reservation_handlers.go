package main

import (
	"hms/src/config"
	"hms/src/types"
	"hms/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func reservationHandlers(g *gin.RouterGroup, catalog config.CapacityCatalog) *gin.RouterGroup {
	g.
		POST("/reservations", func(ctx *gin.Context) {
			var body types.CreateReservationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "InvalidBody"})
				return
			}
			userId := ctx.GetUint("id")
			reservation, err := utils.AdmitReservation(catalog, &body, userId)
			if err != nil {
				log.Printf("Reservation admission rejected for user %d: %s\n", userId, err.Error())
				ctx.JSON(types.HTTPStatus(err), gin.H{"error": err.Error(), "code": types.ErrorCode(err)})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": reservation})
		}).
		GET("/reservations", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			reservations, err := utils.GetOwnReservations(userId)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservations, "count": len(reservations)})
		}).
		PUT("/reservations/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.CancelReservationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "InvalidBody"})
				return
			}
			userId := ctx.GetUint("id")
			reservation, err := utils.CancelReservation(params.ID, userId, body.Reason)
			if err != nil {
				log.Printf("Could not cancel reservation [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(types.HTTPStatus(err), gin.H{"error": err.Error(), "code": types.ErrorCode(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservation})
		})
	return g
}
