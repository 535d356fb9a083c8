package transfer

import "github.com/RekGRpth/pg-curl-sub000/domain/entities"

// InfoString returns a text info value of the last perform. ok is false when the
// value is unset.
func (h *Handle) InfoString(info entities.Info) (string, bool, error) {
	i := &h.info
	switch info {
	case entities.InfoContentType:
		return i.contentType, i.hasContentType, nil
	case entities.InfoEffectiveURL:
		return i.effectiveURL, i.effectiveURL != "", nil
	case entities.InfoPrimaryIP:
		return i.primaryIP, i.primaryIP != "", nil
	case entities.InfoRedirectURL:
		return i.redirectURL, i.redirectURL != "", nil
	default:
		return "", false, newErrorf(BadFunctionArgument, "info %d is not a string", int(info))
	}
}

// InfoLong returns an integer info value of the last perform. Times are in
// microseconds.
func (h *Handle) InfoLong(info entities.Info) (int64, error) {
	i := &h.info
	switch info {
	case entities.InfoResponseCode:
		return i.responseCode, nil
	case entities.InfoHTTPVersion:
		return i.httpVersion, nil
	case entities.InfoRedirectCount:
		return i.redirectCount, nil
	case entities.InfoHeaderSize:
		return i.headerSize, nil
	case entities.InfoSizeDownload:
		return i.sizeDownload, nil
	case entities.InfoSizeUpload:
		return i.sizeUpload, nil
	case entities.InfoTotalTime:
		return i.totalTime.Microseconds(), nil
	default:
		return 0, newErrorf(BadFunctionArgument, "info %d is not an integer", int(info))
	}
}
