package pan

// Result is embedded in every API payload. The server signals failure with a
// non-zero errno; interpretation of individual codes is left to the caller.
type Result struct {
	Errno     int    `json:"errno"`
	ErrMsg    string `json:"errmsg,omitempty"`
	RequestID int64  `json:"request_id,omitempty"`
}

// OK reports whether the server accepted the request.
func (r Result) OK() bool {
	return r.Errno == 0
}

// TokenResponse is the payload of the OAuth token endpoint, for both the
// authorization-code exchange and refresh grants. Success is keyed on the
// presence of AccessToken, not on errno.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Scope            string `json:"scope"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// FileInfo describes a single remote file or directory as returned by the
// list, search, and filemetas methods.
type FileInfo struct {
	FsID           uint64 `json:"fs_id"`
	Path           string `json:"path"`
	ServerFilename string `json:"server_filename"`
	Size           int64  `json:"size"`
	IsDir          int    `json:"isdir"`
	Category       int    `json:"category"`
	MD5            string `json:"md5,omitempty"`
	Dlink          string `json:"dlink,omitempty"`
	ServerCtime    int64  `json:"server_ctime"`
	ServerMtime    int64  `json:"server_mtime"`
}

// ListResponse is the payload of the directory listing method.
type ListResponse struct {
	Result
	List []FileInfo `json:"list"`
}

// SearchResponse is the payload of the keyword search method.
type SearchResponse struct {
	Result
	List    []FileInfo `json:"list"`
	HasMore int        `json:"has_more"`
}

// FileMetasResponse is the payload of the filemetas method.
type FileMetasResponse struct {
	Result
	List []FileInfo `json:"list"`
}

// FileResponse is the payload of the calls that materialize a remote file or
// directory: direct upload, finalize (create), and mkdir.
type FileResponse struct {
	Result
	FsID  uint64 `json:"fs_id"`
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	IsDir int    `json:"isdir"`
	MD5   string `json:"md5,omitempty"`
	Ctime int64  `json:"ctime"`
	Mtime int64  `json:"mtime"`
}

// PrecreateResponse is the payload of the precreate method. UploadID is the
// opaque session identifier chunk uploads and the finalize call carry.
type PrecreateResponse struct {
	Result
	UploadID   string `json:"uploadid"`
	Path       string `json:"path"`
	ReturnType int    `json:"return_type"`
	BlockList  []int  `json:"block_list"`
}

// ChunkResponse is the payload of an individual chunk upload.
type ChunkResponse struct {
	Result
	MD5 string `json:"md5"`
}

// DownloadLinkResponse is the payload of the download method, carrying a
// short-lived direct download URL.
type DownloadLinkResponse struct {
	Result
	Dlink string `json:"dlink"`
}

// FileManagerEntry is the per-path outcome inside a batch file management
// response. Each entry carries its own errno.
type FileManagerEntry struct {
	Errno int    `json:"errno"`
	Path  string `json:"path"`
}

// FileManagerResponse is the payload of the filemanager method
// (delete/rename/move/copy batches).
type FileManagerResponse struct {
	Result
	Info []FileManagerEntry `json:"info"`
}

// UserInfoResponse is the payload of the uinfo method.
type UserInfoResponse struct {
	Result
	BaiduName   string `json:"baidu_name"`
	NetdiskName string `json:"netdisk_name"`
	AvatarURL   string `json:"avatar_url"`
	VipType     int    `json:"vip_type"`
	UK          int64  `json:"uk"`
}

// QuotaResponse is the payload of the quota endpoint. Sizes are in bytes.
type QuotaResponse struct {
	Result
	Total  int64 `json:"total"`
	Used   int64 `json:"used"`
	Free   int64 `json:"free"`
	Expire bool  `json:"expire"`
}

// ShareRecord describes one existing share link.
type ShareRecord struct {
	ShareID     int64  `json:"shareid"`
	Link        string `json:"link"`
	TypicalPath string `json:"typical_path"`
	Ctime       int64  `json:"ctime"`
	ExpiredType int    `json:"expired_type"`
}

// ShareSetResponse is the payload of share creation.
type ShareSetResponse struct {
	Result
	ShareID int64  `json:"shareid"`
	Link    string `json:"link"`
	Period  int    `json:"period"`
}

// ShareListResponse is the payload of the share listing method.
type ShareListResponse struct {
	Result
	List []ShareRecord `json:"list"`
}

// ShareCancelResponse is the payload of share cancellation.
type ShareCancelResponse struct {
	Result
}
