package http

import (
	"github.com/jhoicas/rutslots-api/internal/application/dto"
	"github.com/jhoicas/rutslots-api/internal/application/quota"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
)

func toSlotResponse(s *entity.RutSlot) dto.SlotResponse {
	return dto.SlotResponse{
		ID:             s.ID,
		SlotIndex:      s.SlotIndex,
		RUT:            s.RUT,
		State:          string(s.State),
		LockedAt:       s.LockedAt,
		LockedByFormID: s.LockedByFormID,
		UpdatedAt:      s.UpdatedAt,
	}
}

func toSlotList(list []*entity.RutSlot) dto.SlotListResponse {
	out := dto.SlotListResponse{Items: make([]dto.SlotResponse, 0, len(list)), Total: len(list)}
	for _, s := range list {
		out.Items = append(out.Items, toSlotResponse(s))
		switch s.State {
		case entity.SlotAvailable:
			out.Available++
		case entity.SlotLocked:
			out.Locked++
		default:
			out.Empty++
		}
	}
	return out
}

func toFormResponse(f *entity.Form) dto.FormResponse {
	return dto.FormResponse{
		ID:          f.ID,
		Type:        f.Type,
		SIIRut:      f.SIIRut,
		Status:      string(f.Status),
		CreatedAt:   f.CreatedAt,
		SubmittedAt: f.SubmittedAt,
		Error:       f.ErrorMessage,
	}
}

func toPlanResponse(p *entity.Plan) dto.PlanResponse {
	return dto.PlanResponse{Code: p.Code, Name: p.Name, PriceMonth: p.PriceMonth, RUTQuota: p.RUTQuota}
}

func toSyncResponse(r quota.Result) dto.SyncResponse {
	return dto.SyncResponse{Created: r.Created, Removed: r.Removed, Unlocked: r.Unlocked}
}
