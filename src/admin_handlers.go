package main

import (
	"hms/src/types"
	"hms/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func adminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/admin/reservations", func(ctx *gin.Context) {
			var query types.ListReservationsQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "InvalidQuery"})
				return
			}
			filter := types.ReservationFilter{
				Status:     types.ReservationStatus(query.Status),
				RoomType:   types.RoomType(query.RoomType),
				HostelType: types.HostelType(query.HostelType),
			}
			reservations, total, totalPages, err := utils.ListReservations(filter, query.Page, query.Limit)
			if err != nil {
				ctx.JSON(types.HTTPStatus(err), gin.H{"error": err.Error(), "code": types.ErrorCode(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"data":        reservations,
				"total_count": total,
				"total_pages": totalPages,
				"page":        query.Page,
			})
		}).
		PATCH("/admin/reservations/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateReservationStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "InvalidBody"})
				return
			}
			adminId := ctx.GetUint("id")
			reservation, err := utils.SetReservationStatus(params.ID, adminId, types.ReservationStatus(body.NewStatus), body.Notes)
			if err != nil {
				log.Printf("Could not update status for reservation [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(types.HTTPStatus(err), gin.H{"error": err.Error(), "code": types.ErrorCode(err)})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservation})
		})
	return g
}
