package site

type entry interface {
	entryID() string
}

// Reduce applies `action` to `state` and returns the next state.
// `recognized` is false for actions the reducer does not know; `state` is then returned as is.
// Reduce never mutates `state`: every transition allocates the lists it changes.
func Reduce(state State, action Action) (next State, recognized bool, err error) {
	next = state
	data := &next.Data

	switch a := action.(type) {
	case LoadPersistedData:
		next.Data = a.Data.apply(state.Data)
		next.Data.ContactInfo = next.Data.ContactInfo.clone()
		next.Data.ContactInfo.Normalize()
		if len(next.Data.ContactInfo.PhoneNumbers) > MaxPhoneNumbers {
			next.Data.ContactInfo.PhoneNumbers = next.Data.ContactInfo.PhoneNumbers[:MaxPhoneNumbers]
		}

	case UpdateSiteData:
		patch := a.Patch
		if patch.ContactInfo != nil {
			ci := patch.ContactInfo.clone()
			ci.Normalize()
			if err := checkContactInfo(ci); err != nil {
				return state, true, err
			}
			patch.ContactInfo = &ci
		}
		next.Data = patch.apply(state.Data)

	case SetAdmin:
		next.IsAdmin = a.IsAdmin
		next.CurrentUser = nil
		if a.User != nil {
			u := *a.User
			next.CurrentUser = &u
		}

	case AddNotice:
		data.Notices = prepend(data.Notices, a.Notice)
	case UpdateNotice:
		data.Notices = updateByID(data.Notices, a.ID, a.Patch.apply)
	case DeleteNotice:
		data.Notices = deleteByID(data.Notices, a.ID)

	case AddGalleryImage:
		data.GalleryImages = prepend(data.GalleryImages, a.Image)
	case UpdateGalleryImage:
		data.GalleryImages = updateByID(data.GalleryImages, a.ID, a.Patch.apply)
	case DeleteGalleryImage:
		data.GalleryImages = deleteByID(data.GalleryImages, a.ID)

	case AddAdmissionInquiry:
		data.AdmissionInquiries = prepend(data.AdmissionInquiries, a.Inquiry)
	case DeleteAdmissionInquiry:
		data.AdmissionInquiries = deleteByID(data.AdmissionInquiries, a.ID)

	case AddLatestUpdate:
		data.LatestUpdates = prepend(data.LatestUpdates, a.Update)
	case UpdateLatestUpdate:
		data.LatestUpdates = updateByID(data.LatestUpdates, a.ID, a.Patch.apply)
	case DeleteLatestUpdate:
		data.LatestUpdates = deleteByID(data.LatestUpdates, a.ID)

	case AddFounder:
		data.FounderDetails = prepend(data.FounderDetails, a.Founder)
	case UpdateFounder:
		data.FounderDetails = updateByID(data.FounderDetails, a.ID, a.Patch.apply)
	case DeleteFounder:
		data.FounderDetails = deleteByID(data.FounderDetails, a.ID)

	case AddAdminRequest:
		data.AdminRequests = prepend(data.AdminRequests, a.Request)
	case UpdateAdminRequest:
		data.AdminRequests = updateByID(data.AdminRequests, a.ID, func(req AdminRequest) AdminRequest {
			req.Status = a.Status
			return req
		})
	case DeleteAdminRequest:
		data.AdminRequests = deleteByID(data.AdminRequests, a.ID)

	case CleanupOldInquiries:
		data.AdmissionInquiries = SweepInquiries(data.AdmissionInquiries, a.Now)

	default:
		return state, false, nil
	}

	return next, true, nil
}

// checkContactInfo expects a normalized contact info.
func checkContactInfo(ci ContactInfo) error {
	switch {
	case len(ci.PhoneNumbers) == 0:
		return ErrLastPhoneNumber
	case len(ci.PhoneNumbers) > MaxPhoneNumbers:
		return ErrTooManyPhoneNumbers
	}
	return nil
}

func prepend[T any](list []T, item T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, item)
	return append(out, list...)
}

// updateByID replaces the entries matching `id` with `fn(entry)`.
func updateByID[T entry](list []T, id string, fn func(T) T) []T {
	out := make([]T, len(list))
	for i, item := range list {
		if item.entryID() == id {
			item = fn(item)
		}
		out[i] = item
	}
	return out
}

// deleteByID drops every entry matching `id`.
func deleteByID[T entry](list []T, id string) []T {
	out := make([]T, 0, len(list))
	for _, item := range list {
		if item.entryID() != id {
			out = append(out, item)
		}
	}
	return out
}
