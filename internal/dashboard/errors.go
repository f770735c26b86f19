package dashboard

import "errors"

var ErrFetchingStats = errors.New("error fetching catalog statistics")
