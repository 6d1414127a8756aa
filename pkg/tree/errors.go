package tree

import "github.com/hdistill/hclust/pkg/hcerr"

var errLenMismatch = hcerr.Format("saved partition clusters/colors length mismatch", nil)
